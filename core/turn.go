package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TurnKind categorizes a single contribution to the conversation.
type TurnKind string

const (
	// KindUtterance is a plain conversational contribution.
	KindUtterance TurnKind = "utterance"
	// KindToolRequest is an agent asking for a capability invocation.
	KindToolRequest TurnKind = "tool_request"
	// KindToolResult carries the outcome of a capability invocation.
	KindToolResult TurnKind = "tool_result"
	// KindVerdict is an evaluative decision (approve / reject / confirm)
	// rather than new substantive content.
	KindVerdict TurnKind = "verdict"
)

// ToolCall describes a capability invocation requested by an agent.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolResult records the outcome of a previously requested ToolCall. Either
// Content holds the success payload or Error holds the failure description;
// ErrorKind distinguishes recoverable failure categories for the agent.
type ToolResult struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Content   string `json:"content,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// Turn is one utterance in the exchange. Seq is assigned by the runner when
// the turn is appended to the transcript and is strictly increasing across
// the whole conversation regardless of which agent produced the turn.
type Turn struct {
	ID         string      `json:"id"`
	Seq        int         `json:"seq"`
	Speaker    string      `json:"speaker"`
	Kind       TurnKind    `json:"kind"`
	Content    string      `json:"content,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// NewID generates a new unique identifier for turns and runs.
func NewID() string { return uuid.NewString() }

// NewUtteranceTurn creates an un-sequenced utterance turn. Seq is assigned on
// append.
func NewUtteranceTurn(speaker, content string) Turn {
	return Turn{ID: NewID(), Speaker: speaker, Kind: KindUtterance, Content: content, Timestamp: time.Now().UTC()}
}

// NewVerdictTurn creates an un-sequenced verdict turn.
func NewVerdictTurn(speaker, content string) Turn {
	return Turn{ID: NewID(), Speaker: speaker, Kind: KindVerdict, Content: content, Timestamp: time.Now().UTC()}
}

// NewToolRequestTurn creates an un-sequenced tool request turn.
func NewToolRequestTurn(speaker string, call ToolCall) Turn {
	return Turn{ID: NewID(), Speaker: speaker, Kind: KindToolRequest, ToolCall: &call, Timestamp: time.Now().UTC()}
}

// NewToolResultTurn creates an un-sequenced tool result turn. The speaker is
// the agent on whose behalf the capability was invoked.
func NewToolResultTurn(speaker string, result ToolResult) Turn {
	return Turn{ID: NewID(), Speaker: speaker, Kind: KindToolResult, ToolResult: &result, Timestamp: time.Now().UTC()}
}

// IsVerdict reports whether the turn expresses an evaluative decision.
func (t Turn) IsVerdict() bool { return t.Kind == KindVerdict }

// ValidateHistory checks that a history slice handed to an agent is strictly
// increasing in Seq with no gaps for the turns it includes. The slice may be
// a trailing window, so the first sequence number is not required to be 1.
func ValidateHistory(turns []Turn) error {
	for i := 1; i < len(turns); i++ {
		if turns[i].Seq != turns[i-1].Seq+1 {
			return fmt.Errorf("history gap: turn %d follows turn %d", turns[i].Seq, turns[i-1].Seq)
		}
	}
	return nil
}
