// Package httpapi is the wire client for the gemchat server: POST /chat and
// GET /chats, with error envelopes decoded back into the exchange taxonomy.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"gemchat/internal/chat"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		// No client-level timeout; callers bound requests via context.
		http: &http.Client{Timeout: 0},
	}
}

// SubmitMessage posts a message and returns the answered turn. The wire
// success body carries only the reply, so the returned turn echoes the
// submitted text; id and timestamp stay with the server.
func (c *Client) SubmitMessage(ctx context.Context, text string) (chat.Turn, error) {
	// Same guard the server applies; saves a round trip.
	if err := chat.ValidateMessage(text); err != nil {
		return chat.Turn{}, err
	}

	body, err := json.Marshal(map[string]string{"message": text})
	if err != nil {
		return chat.Turn{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return chat.Turn{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return chat.Turn{}, fmt.Errorf("submit message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return chat.Turn{}, decodeErrorEnvelope(resp.StatusCode, raw)
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return chat.Turn{}, fmt.Errorf("decode chat response: %w", err)
	}
	return chat.Turn{UserMessage: text, ModelReply: out.Response}, nil
}

// ListHistory fetches all durable turns, ascending by timestamp.
func (c *Client) ListHistory(ctx context.Context) ([]chat.Turn, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/chats", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &chat.StoreUnavailableError{Message: "history request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, decodeErrorEnvelope(resp.StatusCode, raw)
	}

	var turns []chat.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return turns, nil
}

// decodeErrorEnvelope maps a wire error back into a typed exchange error.
// Persistence failures keep the delivered reply.
func decodeErrorEnvelope(status int, body []byte) error {
	var env struct {
		Error    string `json:"error"`
		Kind     string `json:"kind"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &env); err != nil || (env.Kind == "" && env.Error == "") {
		return fmt.Errorf("server returned status %d", status)
	}
	if env.Kind == chat.KindPersistenceFailed {
		return &chat.PersistenceFailedError{Reply: env.Response, Message: env.Error}
	}
	return chat.FromKind(env.Kind, env.Error)
}
