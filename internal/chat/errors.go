package chat

import (
	"errors"
	"strings"
)

// Wire error kinds. The server puts these in the error envelope; the HTTP
// client maps them back into typed errors. Clients never see raw provider or
// store internals, only a kind plus a message.
const (
	KindInvalidInput      = "invalid_input"
	KindGenerationFailed  = "generation_failed"
	KindPersistenceFailed = "persistence_failed"
	KindStoreUnavailable  = "store_unavailable"
)

// Kinder is implemented by every error in the exchange taxonomy.
type Kinder interface {
	error
	Kind() string
}

// KindOf returns the wire kind for err, or "" if err is not part of the
// exchange taxonomy.
func KindOf(err error) string {
	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// InvalidInputError rejects an empty or missing message. Recoverable; the
// user corrects the input. No external call was made.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + strings.TrimSpace(e.Message)
}
func (e *InvalidInputError) Kind() string { return KindInvalidInput }

// GenerationFailedError means the provider call failed or returned unusable
// output. Nothing was persisted; the exchange is all-or-nothing from the
// store's perspective.
type GenerationFailedError struct {
	Provider string
	Message  string
	Timeout  bool // deadline expired before the provider answered
	Err      error
}

func (e *GenerationFailedError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "generation failed"
	}
	if e.Timeout {
		msg = "timed out: " + msg
	}
	if e.Provider != "" {
		return "generation failed (" + e.Provider + "): " + msg
	}
	return "generation failed: " + msg
}
func (e *GenerationFailedError) Kind() string  { return KindGenerationFailed }
func (e *GenerationFailedError) Unwrap() error { return e.Err }

// PersistenceFailedError means the provider produced a reply but the store
// write failed. The reply is delivered once to the immediate caller and is
// absent from subsequent history reads. This must stay distinguishable from
// full success.
type PersistenceFailedError struct {
	Reply   string // the generated reply, so it is not lost to this request
	Message string
	Err     error
}

func (e *PersistenceFailedError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "reply generated but not persisted"
	}
	return "persistence failed: " + msg
}
func (e *PersistenceFailedError) Kind() string  { return KindPersistenceFailed }
func (e *PersistenceFailedError) Unwrap() error { return e.Err }

// StoreUnavailableError means a history read failed entirely. It is surfaced,
// never silently converted to an empty list.
type StoreUnavailableError struct {
	Message string
	Err     error
}

func (e *StoreUnavailableError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "store unavailable"
	}
	return "store unavailable: " + msg
}
func (e *StoreUnavailableError) Kind() string  { return KindStoreUnavailable }
func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// FromKind reconstructs a typed error from a wire kind and message. Unknown
// kinds come back as a plain error so callers still see the message.
func FromKind(kind, message string) error {
	switch kind {
	case KindInvalidInput:
		return &InvalidInputError{Message: message}
	case KindGenerationFailed:
		return &GenerationFailedError{Message: message}
	case KindPersistenceFailed:
		return &PersistenceFailedError{Message: message}
	case KindStoreUnavailable:
		return &StoreUnavailableError{Message: message}
	}
	if strings.TrimSpace(message) == "" {
		message = "exchange failed"
	}
	return errors.New(message)
}

func IsInvalidInput(err error) bool {
	var e *InvalidInputError
	return errors.As(err, &e)
}

func IsGenerationFailed(err error) bool {
	var e *GenerationFailedError
	return errors.As(err, &e)
}

func IsPersistenceFailed(err error) bool {
	var e *PersistenceFailedError
	return errors.As(err, &e)
}

func IsStoreUnavailable(err error) bool {
	var e *StoreUnavailableError
	return errors.As(err, &e)
}
