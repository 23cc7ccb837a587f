package transcript

import (
	"context"
	"errors"
	"testing"
	"time"

	"gemchat/internal/chat"
)

// gatedExchanger blocks SubmitMessage until release is closed, so tests can
// observe the transcript between dispatch and settlement.
type gatedExchanger struct {
	release chan struct{}
	calls   int
	turn    chat.Turn
	err     error

	history []chat.Turn
	listErr error
}

func (g *gatedExchanger) SubmitMessage(ctx context.Context, text string) (chat.Turn, error) {
	g.calls++
	if g.release != nil {
		<-g.release
	}
	if g.err != nil {
		return chat.Turn{}, g.err
	}
	t := g.turn
	if t.UserMessage == "" {
		t.UserMessage = text
	}
	return t, nil
}

func (g *gatedExchanger) ListHistory(context.Context) ([]chat.Turn, error) {
	if g.listErr != nil {
		return nil, g.listErr
	}
	return g.history, nil
}

func newTestController(t *testing.T, exch Exchanger) *Controller {
	t.Helper()
	c, err := NewController(exch)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return c
}

func awaitOutcome(t *testing.T, done <-chan Outcome) Outcome {
	t.Helper()
	select {
	case out := <-done:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("send did not settle")
		return Outcome{}
	}
}

func TestSendAppendsPendingImmediately(t *testing.T) {
	exch := &gatedExchanger{release: make(chan struct{}), turn: chat.Turn{ID: "t1", ModelReply: "hello"}}
	c := newTestController(t, exch)

	done, err := c.Send(context.Background(), "hi")
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	// Before any settlement: last entry is pending with the sentinel reply.
	entries := c.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries: %d", len(entries))
	}
	last := entries[len(entries)-1]
	if last.Status != chat.StatusPending {
		t.Errorf("status: %q", last.Status)
	}
	if last.Turn.UserMessage != "hi" {
		t.Errorf("userMessage: %q", last.Turn.UserMessage)
	}
	if last.Turn.ModelReply != chat.SentinelPending {
		t.Errorf("reply: %q", last.Turn.ModelReply)
	}
	if last.Turn.Durable() {
		t.Error("transient turn carries an id")
	}

	close(exch.release)
	awaitOutcome(t, done)
}

func TestSendHappyPathReconciles(t *testing.T) {
	exch := &gatedExchanger{turn: chat.Turn{ID: "t1", UserMessage: "hi", ModelReply: "hello"}}
	c := newTestController(t, exch)

	done, err := c.Send(context.Background(), "hi")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	out := awaitOutcome(t, done)
	if out.Err != nil {
		t.Fatalf("outcome: %v", out.Err)
	}

	entries := c.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries: %d", len(entries))
	}
	got := entries[0]
	if got.Status != chat.StatusDurable {
		t.Errorf("status: %q", got.Status)
	}
	if got.Turn.UserMessage != "hi" || got.Turn.ModelReply != "hello" {
		t.Errorf("turn: %+v", got.Turn)
	}
	if got.Turn.ID != "t1" {
		t.Errorf("durable id: %q", got.Turn.ID)
	}
}

func TestSendFailureMarksEntryFailed(t *testing.T) {
	exch := &gatedExchanger{err: &chat.GenerationFailedError{Message: "provider down"}}
	c := newTestController(t, exch)

	done, err := c.Send(context.Background(), "x")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	out := awaitOutcome(t, done)
	if out.Err == nil {
		t.Fatal("expected outcome error")
	}

	// The entry degrades to failed; it never silently vanishes and no new
	// entry is added.
	entries := c.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries: %d", len(entries))
	}
	got := entries[0]
	if got.Status != chat.StatusFailed {
		t.Errorf("status: %q", got.Status)
	}
	if got.Turn.UserMessage != "x" {
		t.Errorf("userMessage: %q", got.Turn.UserMessage)
	}
	if got.Turn.ModelReply == chat.SentinelPending {
		t.Error("failed entry still shows the pending sentinel")
	}
}

func TestSendEmptyInputIsNoOp(t *testing.T) {
	exch := &gatedExchanger{}
	c := newTestController(t, exch)

	for _, text := range []string{"", "   ", "\t"} {
		done, err := c.Send(context.Background(), text)
		if err != nil {
			t.Errorf("%q: err %v", text, err)
		}
		if done != nil {
			t.Errorf("%q: got a settlement channel", text)
		}
	}
	if exch.calls != 0 {
		t.Errorf("network calls for empty input: %d", exch.calls)
	}
	if len(c.Entries()) != 0 {
		t.Errorf("transcript mutated: %+v", c.Entries())
	}
}

func TestSendSerializesInFlight(t *testing.T) {
	exch := &gatedExchanger{release: make(chan struct{}), turn: chat.Turn{ID: "t1", ModelReply: "hello"}}
	c := newTestController(t, exch)

	done, err := c.Send(context.Background(), "first")
	if err != nil {
		t.Fatalf("first send: %v", err)
	}

	if _, err := c.Send(context.Background(), "second"); !errors.Is(err, ErrSendInFlight) {
		t.Fatalf("second send: %v", err)
	}
	if len(c.Entries()) != 1 {
		t.Errorf("rejected send mutated the transcript: %d entries", len(c.Entries()))
	}

	close(exch.release)
	awaitOutcome(t, done)

	// After settlement a new send is accepted again.
	exch.release = nil
	done2, err := c.Send(context.Background(), "third")
	if err != nil {
		t.Fatalf("send after settlement: %v", err)
	}
	awaitOutcome(t, done2)
}

func TestDraftClearedOnlyAfterSettlement(t *testing.T) {
	exch := &gatedExchanger{release: make(chan struct{}), err: errors.New("boom")}
	c := newTestController(t, exch)

	c.SetDraft("hi")
	done, err := c.Send(context.Background(), "hi")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if c.Draft() != "hi" {
		t.Errorf("draft cleared before settlement: %q", c.Draft())
	}

	close(exch.release)
	awaitOutcome(t, done)
	// Cleared regardless of outcome.
	if c.Draft() != "" {
		t.Errorf("draft not cleared after settlement: %q", c.Draft())
	}
}

func TestLoadHistoryReplacesTranscript(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	exch := &gatedExchanger{history: []chat.Turn{
		{ID: "a", UserMessage: "one", ModelReply: "1", CreatedAt: base},
		{ID: "b", UserMessage: "two", ModelReply: "2", CreatedAt: base.Add(time.Minute)},
	}}
	c := newTestController(t, exch)

	if err := c.LoadHistory(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	entries := c.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries: %d", len(entries))
	}
	for i, e := range entries {
		if e.Status != chat.StatusDurable {
			t.Errorf("entry %d status: %q", i, e.Status)
		}
	}
	if entries[0].Turn.UserMessage != "one" || entries[1].Turn.UserMessage != "two" {
		t.Errorf("order changed: %+v", entries)
	}
}

func TestLoadHistoryFailureLeavesTranscriptEmpty(t *testing.T) {
	exch := &gatedExchanger{
		history: []chat.Turn{{ID: "a", UserMessage: "one", ModelReply: "1"}},
	}
	c := newTestController(t, exch)
	if err := c.LoadHistory(context.Background()); err != nil {
		t.Fatalf("seed load: %v", err)
	}

	exch.listErr = &chat.StoreUnavailableError{Message: "down"}
	err := c.LoadHistory(context.Background())
	if !chat.IsStoreUnavailable(err) {
		t.Fatalf("expected StoreUnavailable, got %v", err)
	}
	if len(c.Entries()) != 0 {
		t.Errorf("transcript not empty after failed load: %+v", c.Entries())
	}
}
