// Package tool implements the capability invocation subsystem that lets
// agents call external functions through a uniform connector contract. A
// Connector exposes a fixed, pre-registered set of capability names; unknown
// names fail with the UnknownCapability error kind, which callers treat as a
// configuration defect.
//
// Connectors perform no retries themselves. Retry policy belongs to the
// caller, since only the caller knows whether a retried call with different
// arguments makes sense.
package tool

import (
	"context"
	"errors"
	"fmt"
)

// Output is the structured success payload of a capability invocation.
type Output struct {
	// Content is the textual payload handed back to the requesting agent.
	Content string `json:"content"`
	// Data optionally carries the structured form of the payload.
	Data map[string]any `json:"data,omitempty"`
}

// ErrorKind categorizes capability invocation failures.
type ErrorKind string

const (
	// ErrorUnreachable means the capability endpoint could not be reached.
	// Recoverable: the agent proceeds without the tool result.
	ErrorUnreachable ErrorKind = "unreachable"
	// ErrorRejected means the capability returned a domain-level rejection
	// (for example: no data available). Recoverable: surfaced to the agent
	// as context.
	ErrorRejected ErrorKind = "rejected"
	// ErrorUnknownCapability means the requested name is not registered.
	// Always fatal: the agent was configured with a capability it cannot
	// use.
	ErrorUnknownCapability ErrorKind = "unknown_capability"
)

// InvocationError is the typed failure of a capability invocation.
type InvocationError struct {
	Capability string
	Kind       ErrorKind
	Reason     string
	Err        error
}

func (e *InvocationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("tool %s %s: %s", e.Capability, e.Kind, e.Reason)
	}
	return fmt.Sprintf("tool %s %s: %v", e.Capability, e.Kind, e.Err)
}

// Unwrap exposes the underlying transport error, if any.
func (e *InvocationError) Unwrap() error { return e.Err }

// NewUnreachable wraps a transport failure for a capability.
func NewUnreachable(capability string, err error) *InvocationError {
	return &InvocationError{Capability: capability, Kind: ErrorUnreachable, Err: err}
}

// NewRejected records a domain-level rejection from a capability.
func NewRejected(capability, reason string) *InvocationError {
	return &InvocationError{Capability: capability, Kind: ErrorRejected, Reason: reason}
}

// NewUnknownCapability records a request for an unregistered capability.
func NewUnknownCapability(capability string) *InvocationError {
	return &InvocationError{Capability: capability, Kind: ErrorUnknownCapability, Reason: "capability not registered"}
}

// KindOf extracts the error kind from err, or "" when err is not an
// InvocationError.
func KindOf(err error) ErrorKind {
	var ie *InvocationError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}

// Definition declaratively describes one capability for model consumption.
// Parameters is a JSON Schema object.
type Definition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Connector adapts one or more external capabilities into a uniform
// invocation contract consumable by agents. Implementations must be safely
// callable multiple times with different arguments within one run.
type Connector interface {
	// Definitions lists the registered capabilities.
	Definitions() []Definition

	// Has reports whether the named capability is registered.
	Has(name string) bool

	// Invoke calls the named capability. Failures are *InvocationError
	// values distinguishing unreachable endpoints, domain rejections and
	// unknown capability names.
	Invoke(ctx context.Context, name string, args map[string]any) (*Output, error)
}
