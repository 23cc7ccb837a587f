// Package google implements the Gemini generateContent API as an llm
// provider adapter.
package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"gemchat/internal/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// defaultMaxOutputTokens bounds the completion when the request does not.
const defaultMaxOutputTokens = 2048

type Adapter struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

// NewFromEnv builds an adapter from GEMINI_API_KEY (GOOGLE_API_KEY as a
// common alias) and GEMINI_BASE_URL.
func NewFromEnv() (*Adapter, error) {
	key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if key == "" {
		key = strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))
	}
	if key == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	return New(key, os.Getenv("GEMINI_BASE_URL")), nil
}

func New(apiKey, baseURL string) *Adapter {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	return &Adapter{
		APIKey:  strings.TrimSpace(apiKey),
		BaseURL: base,
		// Avoid short client-level timeouts; rely on request context
		// deadlines instead.
		Client: &http.Client{Timeout: 0},
	}
}

func (a *Adapter) Name() string { return "google" }

func (a *Adapter) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if a.Client == nil {
		a.Client = &http.Client{Timeout: 0}
	}

	genCfg := map[string]any{}
	if req.MaxTokens > 0 {
		genCfg["maxOutputTokens"] = req.MaxTokens
	} else {
		genCfg["maxOutputTokens"] = defaultMaxOutputTokens
	}
	if req.Temperature != nil {
		genCfg["temperature"] = *req.Temperature
	}

	body := map[string]any{
		"contents": []map[string]any{{
			"role":  "user",
			"parts": []map[string]any{{"text": req.Prompt}},
		}},
		"generationConfig": genCfg,
	}

	b, err := json.Marshal(body)
	if err != nil {
		return llm.Response{}, err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", a.BaseURL, url.PathEscape(req.Model))
	u, err := url.Parse(endpoint)
	if err != nil {
		return llm.Response{}, err
	}
	q := u.Query()
	q.Set("key", a.APIKey)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(b))
	if err != nil {
		return llm.Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.Client.Do(httpReq)
	if err != nil {
		return llm.Response{}, llm.WrapContextError(a.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawBytes, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ra := llm.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		msg := fmt.Sprintf("generateContent failed: %s", strings.TrimSpace(string(rawBytes)))
		return llm.Response{}, llm.ErrorFromHTTPStatus(a.Name(), resp.StatusCode, msg, ra)
	}

	var raw map[string]any
	if err := json.Unmarshal(rawBytes, &raw); err != nil {
		return llm.Response{}, fmt.Errorf("decode generateContent response: %w", err)
	}
	return llm.Response{
		Provider: a.Name(),
		Model:    req.Model,
		Text:     textFromGeminiResponse(raw),
	}, nil
}

// textFromGeminiResponse joins the text parts of the first candidate:
// candidates[0].content.parts[].text.
func textFromGeminiResponse(raw map[string]any) string {
	cands, ok := raw["candidates"].([]any)
	if !ok || len(cands) == 0 {
		return ""
	}
	c0, ok := cands[0].(map[string]any)
	if !ok {
		return ""
	}
	content, ok := c0["content"].(map[string]any)
	if !ok {
		return ""
	}
	parts, ok := content["parts"].([]any)
	if !ok {
		return ""
	}
	var sb strings.Builder
	for _, pAny := range parts {
		p, ok := pAny.(map[string]any)
		if !ok {
			continue
		}
		if t, _ := p["text"].(string); t != "" {
			sb.WriteString(t)
		}
	}
	return sb.String()
}
