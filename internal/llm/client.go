package llm

import (
	"context"
	"fmt"
	"strings"
)

// Request is a single text-completion request.
type Request struct {
	// Provider selects a registered adapter by name. Empty means the
	// client's default provider.
	Provider string

	Model       string
	Prompt      string
	MaxTokens   int
	Temperature *float64
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return &ConfigurationError{Message: "model is required"}
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return &ConfigurationError{Message: "prompt is required"}
	}
	return nil
}

// Response is the provider's completion for a request.
type Response struct {
	Provider string
	Model    string
	Text     string
}

// ProviderAdapter is implemented by each concrete provider backend.
type ProviderAdapter interface {
	Name() string
	Complete(ctx context.Context, req Request) (Response, error)
}

// Client routes completion requests to registered provider adapters.
type Client struct {
	providers       map[string]ProviderAdapter
	defaultProvider string
}

func NewClient() *Client {
	return &Client{providers: map[string]ProviderAdapter{}}
}

func (c *Client) Register(adapter ProviderAdapter) {
	if c.providers == nil {
		c.providers = map[string]ProviderAdapter{}
	}
	c.providers[adapter.Name()] = adapter
	if c.defaultProvider == "" {
		c.defaultProvider = adapter.Name()
	}
}

func (c *Client) SetDefaultProvider(name string) {
	c.defaultProvider = name
}

func (c *Client) ProviderNames() []string {
	if c == nil || len(c.providers) == 0 {
		return nil
	}
	out := make([]string, 0, len(c.providers))
	for k := range c.providers {
		out = append(out, k)
	}
	return out
}

func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}
	prov := req.Provider
	if prov == "" {
		prov = c.defaultProvider
	}
	if prov == "" {
		return Response{}, &ConfigurationError{Message: "no provider specified and no default provider configured"}
	}
	adapter, ok := c.providers[prov]
	if !ok {
		return Response{}, &ConfigurationError{Message: fmt.Sprintf("unknown provider: %s", prov)}
	}
	req.Provider = prov
	return adapter.Complete(ctx, req)
}
