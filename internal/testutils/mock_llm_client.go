// Package testutils provides test doubles and fixtures shared by package
// tests across the module.
package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ahrav/go-judicatura/internal/ports"
)

// ScriptStep is one scripted reply: either a response text or an error.
type ScriptStep struct {
	Response string
	Err      error
}

// Call records one request seen by ScriptedLLMClient.
type Call struct {
	Prompt  string
	Options map[string]any
}

// ScriptedLLMClient implements ports.LLMClient by replaying a fixed
// sequence of replies. Once the script is exhausted the last step repeats,
// or the fallback response is used when the script is empty. It is safe
// for concurrent use.
type ScriptedLLMClient struct {
	mu       sync.Mutex
	model    string
	script   []ScriptStep
	fallback string
	calls    []Call
}

// NewScriptedLLMClient creates a client replaying steps in order.
func NewScriptedLLMClient(model string, steps ...ScriptStep) *ScriptedLLMClient {
	return &ScriptedLLMClient{
		model:    model,
		script:   steps,
		fallback: ValidScoreJSON,
	}
}

// Responses is shorthand for a script of successful replies.
func Responses(texts ...string) []ScriptStep {
	steps := make([]ScriptStep, len(texts))
	for i, t := range texts {
		steps[i] = ScriptStep{Response: t}
	}
	return steps
}

// Failure returns a scripted transport error.
func Failure(err error) ScriptStep { return ScriptStep{Err: err} }

// Complete returns the next scripted reply.
func (m *ScriptedLLMClient) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx := len(m.calls)
	m.calls = append(m.calls, Call{Prompt: prompt, Options: cloneOptions(options)})

	if len(m.script) == 0 {
		return m.fallback, nil
	}
	if idx >= len(m.script) {
		idx = len(m.script) - 1
	}
	step := m.script[idx]
	return step.Response, step.Err
}

// EstimateTokens approximates four characters per token.
func (m *ScriptedLLMClient) EstimateTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	tokens := len(text) / 4
	if tokens == 0 {
		tokens = 1
	}
	return tokens, nil
}

// GetModel returns the configured model identifier.
func (m *ScriptedLLMClient) GetModel() string { return m.model }

// SetFallback sets the reply used when the script is empty.
func (m *ScriptedLLMClient) SetFallback(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = response
}

// CallCount returns the number of Complete calls made.
func (m *ScriptedLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded requests.
func (m *ScriptedLLMClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// LastPrompt returns the most recent prompt, or "".
func (m *ScriptedLLMClient) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return ""
	}
	return m.calls[len(m.calls)-1].Prompt
}

// PromptsContaining counts recorded prompts that contain substr.
func (m *ScriptedLLMClient) PromptsContaining(substr string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if strings.Contains(c.Prompt, substr) {
			n++
		}
	}
	return n
}

// Reset clears recorded calls so the script replays from the start.
func (m *ScriptedLLMClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func cloneOptions(opts map[string]any) map[string]any {
	if opts == nil {
		return nil
	}
	out := make(map[string]any, len(opts))
	for k, v := range opts {
		out[k] = v
	}
	return out
}

var _ ports.LLMClient = (*ScriptedLLMClient)(nil)
