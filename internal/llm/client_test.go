package llm

import (
	"context"
	"errors"
	"sort"
	"testing"
)

type fakeAdapter struct {
	name  string
	calls int
	resp  Response
	err   error
}

func (f *fakeAdapter) Name() string { return f.name }
func (f *fakeAdapter) Complete(_ context.Context, req Request) (Response, error) {
	f.calls++
	if f.err != nil {
		return Response{}, f.err
	}
	r := f.resp
	r.Provider = f.name
	r.Model = req.Model
	return r, nil
}

func TestClientRoutesToDefaultProvider(t *testing.T) {
	c := NewClient()
	a := &fakeAdapter{name: "google", resp: Response{Text: "hello"}}
	c.Register(a)

	resp, err := c.Complete(context.Background(), Request{Model: "gemini-test", Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "hello" || resp.Provider != "google" {
		t.Errorf("resp: %+v", resp)
	}
	if a.calls != 1 {
		t.Errorf("adapter calls: %d", a.calls)
	}
}

func TestClientExplicitProvider(t *testing.T) {
	c := NewClient()
	first := &fakeAdapter{name: "first", resp: Response{Text: "a"}}
	second := &fakeAdapter{name: "second", resp: Response{Text: "b"}}
	c.Register(first)
	c.Register(second)

	resp, err := c.Complete(context.Background(), Request{Provider: "second", Model: "m", Prompt: "p"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "b" {
		t.Errorf("routed to wrong provider: %+v", resp)
	}

	names := c.ProviderNames()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "first" || names[1] != "second" {
		t.Errorf("provider names: %v", names)
	}
}

func TestClientUnknownProvider(t *testing.T) {
	c := NewClient()
	c.Register(&fakeAdapter{name: "google"})

	_, err := c.Complete(context.Background(), Request{Provider: "nope", Model: "m", Prompt: "p"})
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestClientNoProviders(t *testing.T) {
	c := NewClient()
	_, err := c.Complete(context.Background(), Request{Model: "m", Prompt: "p"})
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestClientValidatesRequest(t *testing.T) {
	c := NewClient()
	a := &fakeAdapter{name: "google"}
	c.Register(a)

	for _, req := range []Request{
		{Model: "", Prompt: "p"},
		{Model: "m", Prompt: ""},
		{Model: "m", Prompt: "   "},
	} {
		if _, err := c.Complete(context.Background(), req); err == nil {
			t.Errorf("request %+v accepted", req)
		}
	}
	if a.calls != 0 {
		t.Errorf("invalid requests reached the adapter: %d calls", a.calls)
	}
}
