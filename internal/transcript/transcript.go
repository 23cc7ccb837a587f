// Package transcript maintains the client-side view of a conversation: an
// ordered list of turns kept consistent through optimistic updates while
// exchanges are in flight.
package transcript

import (
	"context"
	"errors"
	"strings"
	"sync"

	"gemchat/internal/chat"
)

// ErrSendInFlight rejects a second Send while one is still outstanding.
// Sends are serialized: the optimistic "reconcile the last pending turn"
// rule is only correct for at most one outstanding exchange.
var ErrSendInFlight = errors.New("a send is already in flight")

// Exchanger is the server surface the controller talks to. Both the
// in-process orchestrator and the HTTP API client satisfy it.
type Exchanger interface {
	SubmitMessage(ctx context.Context, text string) (chat.Turn, error)
	ListHistory(ctx context.Context) ([]chat.Turn, error)
}

// Entry is one transcript row.
type Entry struct {
	Turn   chat.Turn
	Status chat.Status
}

// Outcome is delivered when a Send settles.
type Outcome struct {
	Turn chat.Turn
	Err  error
}

// Controller owns the ordered transcript. All methods are safe for
// concurrent use.
type Controller struct {
	exch Exchanger

	mu       sync.Mutex
	entries  []Entry
	inFlight bool
	draft    string
}

func NewController(exch Exchanger) (*Controller, error) {
	if exch == nil {
		return nil, errors.New("exchanger is nil")
	}
	return &Controller{exch: exch}, nil
}

// LoadHistory replaces the transcript with the durable history, in the order
// the server returned it. On failure the transcript is left empty and the
// error is returned for the presentation layer to report; there is no
// automatic retry.
func (c *Controller) LoadHistory(ctx context.Context) error {
	turns, err := c.exch.ListHistory(ctx)
	if err != nil {
		c.mu.Lock()
		c.entries = nil
		c.mu.Unlock()
		return err
	}

	entries := make([]Entry, 0, len(turns))
	for _, t := range turns {
		entries = append(entries, Entry{Turn: t, Status: chat.StatusDurable})
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

// Entries returns a snapshot of the transcript.
func (c *Controller) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry{}, c.entries...)
}

// SetDraft records the text the user is composing. The draft survives until
// the in-flight send settles, preventing accidental duplicate resubmission
// of text that has not been answered yet.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Send submits a message through the exchanger with an optimistic update:
// a pending turn is appended synchronously before dispatch, then reconciled
// when the exchange settles. The returned channel delivers the settled
// outcome (buffered, single send).
//
// Whitespace-only text is a no-op: nil channel, nil error, no transcript
// mutation, no network call.
func (c *Controller) Send(ctx context.Context, text string) (<-chan Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrSendInFlight
	}
	c.inFlight = true
	c.entries = append(c.entries, Entry{
		Turn:   chat.Turn{UserMessage: text, ModelReply: chat.SentinelPending},
		Status: chat.StatusPending,
	})
	c.mu.Unlock()

	done := make(chan Outcome, 1)
	go func() {
		turn, err := c.exch.SubmitMessage(ctx, text)
		c.settle(text, turn, err)
		done <- Outcome{Turn: turn, Err: err}
	}()
	return done, nil
}

// settle reconciles the most recent pending entry for text: on success it
// becomes the durable turn; on failure it is marked failed, never removed —
// the user sees their message was sent but not answered.
func (c *Controller) settle(text string, turn chat.Turn, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inFlight = false
	// Cleared only after settlement, success or failure.
	c.draft = ""

	for i := len(c.entries) - 1; i >= 0; i-- {
		e := &c.entries[i]
		if e.Status != chat.StatusPending || e.Turn.UserMessage != text {
			continue
		}
		if err != nil {
			e.Status = chat.StatusFailed
			e.Turn.ModelReply = failedReply(err)
		} else {
			e.Turn = turn
			e.Status = chat.StatusDurable
		}
		return
	}
	// The pending entry is gone (history reloaded mid-flight); nothing to
	// reconcile.
}

func failedReply(err error) string {
	if kind := chat.KindOf(err); kind != "" {
		return "send failed: " + kind
	}
	return "send failed"
}
