package chat

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidateMessage(t *testing.T) {
	if err := ValidateMessage("hello"); err != nil {
		t.Fatalf("non-empty message rejected: %v", err)
	}
	for _, text := range []string{"", "   ", "\t\n"} {
		err := ValidateMessage(text)
		if err == nil {
			t.Fatalf("expected error for %q", text)
		}
		if !IsInvalidInput(err) {
			t.Errorf("expected InvalidInputError for %q, got %T", text, err)
		}
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(&GenerationFailedError{Message: "boom"}); got != KindGenerationFailed {
		t.Errorf("kind: %q", got)
	}
	// Wrapped errors still classify.
	wrapped := fmt.Errorf("submit: %w", &StoreUnavailableError{Message: "down"})
	if got := KindOf(wrapped); got != KindStoreUnavailable {
		t.Errorf("wrapped kind: %q", got)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("plain error kind: %q", got)
	}
}

func TestFromKindRoundTrip(t *testing.T) {
	for _, kind := range []string{
		KindInvalidInput,
		KindGenerationFailed,
		KindPersistenceFailed,
		KindStoreUnavailable,
	} {
		err := FromKind(kind, "detail")
		if got := KindOf(err); got != kind {
			t.Errorf("FromKind(%q) round-tripped to %q", kind, got)
		}
	}

	err := FromKind("something_else", "detail")
	if KindOf(err) != "" {
		t.Errorf("unknown kind should produce an untyped error, got %T", err)
	}
	if err.Error() != "detail" {
		t.Errorf("unknown kind message: %q", err.Error())
	}
}

func TestPersistenceFailedCarriesReply(t *testing.T) {
	var pf *PersistenceFailedError
	err := fmt.Errorf("exchange: %w", &PersistenceFailedError{Reply: "hello", Message: "disk full"})
	if !errors.As(err, &pf) {
		t.Fatalf("errors.As failed")
	}
	if pf.Reply != "hello" {
		t.Errorf("reply lost: %q", pf.Reply)
	}
}

func TestTurnDurable(t *testing.T) {
	if (Turn{}).Durable() {
		t.Error("turn without id reported durable")
	}
	if !(Turn{ID: "01ABC"}).Durable() {
		t.Error("turn with id reported transient")
	}
}
