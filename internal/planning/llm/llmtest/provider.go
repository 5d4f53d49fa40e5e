// Package llmtest provides a scriptable llm.Provider for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"

	"tripplanner/internal/planning/llm"
)

// Call records one Complete invocation.
type Call struct {
	Messages []llm.Message
	Opts     llm.Options
}

// Provider is a fake completion provider. Replies are returned in order and
// the last one repeats. When Gate is set, Complete blocks until a value is
// received from it or the context ends, which lets tests hold a request in
// flight.
type Provider struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []Call

	// Unavailable makes Available report false.
	Unavailable bool
	// Gate, when non-nil, must deliver a value before Complete returns.
	Gate chan struct{}
	// Started receives a value when a call begins, if non-nil.
	Started chan struct{}
}

// New returns a provider that answers with the given replies.
func New(replies ...string) *Provider {
	return &Provider{replies: replies}
}

// Failing returns a provider whose calls fail with err.
func Failing(err error) *Provider {
	if err == nil {
		err = errors.New("completion service unavailable")
	}
	return &Provider{err: err}
}

func (p *Provider) Name() string    { return "fake" }
func (p *Provider) Available() bool { return !p.Unavailable }

func (p *Provider) Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (*llm.Response, error) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Messages: append([]llm.Message(nil), messages...), Opts: opts})
	idx := len(p.calls) - 1
	p.mu.Unlock()

	if p.Started != nil {
		p.Started <- struct{}{}
	}
	if p.Gate != nil {
		select {
		case <-p.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if p.err != nil {
		return nil, p.err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	var content string
	if len(p.replies) > 0 {
		content = p.replies[min(idx, len(p.replies)-1)]
	}
	return &llm.Response{
		Content:      content,
		FinishReason: "stop",
		PromptTokens: int64(len(messages)),
		OutputTokens: int64(len(content)),
	}, nil
}

// Calls returns a copy of the recorded calls.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}
