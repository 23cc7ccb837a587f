// Package exchange coordinates a chat exchange: generate a reply for a user
// message, persist the resulting turn, and serve the persisted history.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gemchat/internal/chat"
	"gemchat/internal/llm"
)

// TurnStore is the durable store consumed by the orchestrator.
type TurnStore interface {
	Append(ctx context.Context, userMessage, modelReply string, createdAt time.Time) (chat.Turn, error)
	List(ctx context.Context) ([]chat.Turn, error)
}

// Config is built once at startup and immutable thereafter.
type Config struct {
	// Model is the provider model used for every exchange.
	Model string

	// GenTimeout bounds a single provider call. Zero means no deadline
	// beyond the caller's context.
	GenTimeout time.Duration
}

type Orchestrator struct {
	client *llm.Client
	store  TurnStore
	cfg    Config
	now    func() time.Time
	logger *log.Logger
}

func New(client *llm.Client, store TurnStore, cfg Config) (*Orchestrator, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is nil")
	}
	if store == nil {
		return nil, fmt.Errorf("turn store is nil")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	return &Orchestrator{
		client: client,
		store:  store,
		cfg:    cfg,
		now:    time.Now,
		logger: log.New(os.Stderr, "[gemchat-exchange] ", log.LstdFlags),
	}, nil
}

// SetClock overrides the orchestrator's time source. Tests only.
func (o *Orchestrator) SetClock(now func() time.Time) {
	if now != nil {
		o.now = now
	}
}

// SubmitMessage turns a raw user message into a persisted, answered turn.
//
// Generation must complete before persistence begins; a reply is only stored
// if it was actually produced. A store failure after successful generation
// still returns the reply to this caller, flagged as PersistenceFailed.
func (o *Orchestrator) SubmitMessage(ctx context.Context, text string) (chat.Turn, error) {
	if err := chat.ValidateMessage(text); err != nil {
		return chat.Turn{}, err
	}

	genCtx := ctx
	if o.cfg.GenTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, o.cfg.GenTimeout)
		defer cancel()
	}

	resp, err := o.client.Complete(genCtx, llm.Request{Model: o.cfg.Model, Prompt: text})
	if err != nil {
		o.logger.Printf("generation failed: %v", err)
		return chat.Turn{}, &chat.GenerationFailedError{
			Provider: providerOf(err),
			Message:  err.Error(),
			Timeout:  llm.IsTimeout(err),
			Err:      err,
		}
	}
	if strings.TrimSpace(resp.Text) == "" {
		o.logger.Printf("provider %s returned an empty completion", resp.Provider)
		return chat.Turn{}, &chat.GenerationFailedError{
			Provider: resp.Provider,
			Message:  "provider returned an empty completion",
		}
	}

	turn, err := o.store.Append(ctx, text, resp.Text, o.now().UTC())
	if err != nil {
		o.logger.Printf("persist failed after successful generation: %v", err)
		return chat.Turn{}, &chat.PersistenceFailedError{
			Reply:   resp.Text,
			Message: "reply generated but could not be persisted",
			Err:     err,
		}
	}
	return turn, nil
}

// ListHistory returns all durable turns ascending by creation time.
func (o *Orchestrator) ListHistory(ctx context.Context) ([]chat.Turn, error) {
	turns, err := o.store.List(ctx)
	if err != nil {
		o.logger.Printf("history read failed: %v", err)
		return nil, &chat.StoreUnavailableError{
			Message: "history read failed",
			Err:     err,
		}
	}
	return turns, nil
}

func providerOf(err error) string {
	var le llm.Error
	if errors.As(err, &le) {
		return le.Provider()
	}
	return ""
}
