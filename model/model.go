// Package model defines the normalized inference boundary consumed by
// agents. Provider adapters (see the openai and anthropic sub-packages)
// translate Request/Response into vendor SDK calls so downstream logic never
// branches per vendor.
package model

import (
	"context"
	"fmt"
	"sync"
)

// Message is one entry of the conversation context sent to a model.
type Message struct {
	// Role is one of "system", "user", "assistant" or "tool".
	Role string `json:"role"`
	// Content is the text payload. Empty for assistant messages that only
	// carry tool calls.
	Content string `json:"content,omitempty"`
	// ToolCalls is set on assistant messages requesting capability
	// invocations.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// ToolCallID pairs a tool role message with the originating call.
	ToolCallID string `json:"tool_call_id,omitempty"`
	// Name is the tool name for tool role messages.
	Name string `json:"name,omitempty"`
}

// ToolCall represents a function call request surfaced by a model provider.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"` // JSON string of arguments
}

// ToolDefinition declaratively exposes a callable capability to the model.
// Parameters is a JSON Schema object (minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by an agent.
type Request struct {
	Instructions string           `json:"instructions"`
	Temperature  float64          `json:"temperature,omitempty"`
	Messages     []Message        `json:"messages"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
}

// Response is the final completion returned by a model.
type Response struct {
	Text         string     `json:"text,omitempty"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by agents to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// TransientError wraps a provider error that is safe to retry (rate limits,
// upstream unavailability). Callers distinguish "retry later" from "reject
// this run" via IsTransient.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient model error: %v", e.Err) }

// Unwrap exposes the underlying provider error.
func (e *TransientError) Unwrap() error { return e.Err }

// Transient implements the retry.Transient classification interface.
func (e *TransientError) Transient() bool { return true }

// MockReply is one scripted completion for a MockModel.
type MockReply struct {
	Text      string
	ToolCalls []ToolCall
	Err       error
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Replies are consumed in FIFO order; once the script is exhausted it echoes
// the last message of the request. Safe for concurrent use.
type MockModel struct {
	mu       sync.Mutex
	info     Info
	script   []MockReply
	requests []Request
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info: Info{Name: name, Provider: "mock", SupportsTools: true},
	}
}

// Enqueue appends scripted replies consumed by subsequent Generate calls.
func (m *MockModel) Enqueue(replies ...MockReply) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, replies...)
	return m
}

// Requests returns a copy of all requests seen so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.script) == 0 {
		text := "ok"
		if n := len(req.Messages); n > 0 {
			text = fmt.Sprintf("Mock response to: %s", req.Messages[n-1].Content)
		}
		return &Response{Text: text, FinishReason: "stop"}, nil
	}
	reply := m.script[0]
	m.script = m.script[1:]
	if reply.Err != nil {
		return nil, reply.Err
	}
	finish := "stop"
	if len(reply.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	return &Response{Text: reply.Text, ToolCalls: reply.ToolCalls, FinishReason: finish}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
