// Package agent implements the stateless request/response participant of a
// collaboration run. One Agent type covers both variants the engine needs:
// plain responders and tool-using responders, dispatched by configuration (an
// AgentConfig plus an optional tool connector) rather than a type hierarchy.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/colloquy/core"
	"github.com/hupe1980/colloquy/logging"
	"github.com/hupe1980/colloquy/model"
	"github.com/hupe1980/colloquy/retry"
	"github.com/hupe1980/colloquy/tool"
)

// Options configures an Agent instance.
type Options struct {
	// Connector grants tool access. Nil means the agent is a plain
	// responder regardless of configured capabilities.
	Connector tool.Connector
	// RetryConfig governs retries of transient model errors.
	RetryConfig retry.Config
	// Logger receives structured per-response events.
	Logger logging.Logger
}

// Agent wraps a role configuration and a model into a respond unit. Agents
// hold no conversation state: every response is computed from the history
// slice passed in, so one Agent value can serve many sequential runs.
type Agent struct {
	config    core.AgentConfig
	llm       model.Model
	connector tool.Connector
	retryCfg  retry.Config
	logger    logging.Logger
}

// New creates an agent from an immutable config and a model.
func New(config core.AgentConfig, llm model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{
		RetryConfig: retry.DefaultConfig(),
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Agent{
		config:    config,
		llm:       llm,
		connector: opts.Connector,
		retryCfg:  opts.RetryConfig,
		logger:    opts.Logger,
	}
}

// Config returns the agent's immutable configuration.
func (a *Agent) Config() core.AgentConfig { return a.config }

// Role returns the agent's role identifier, used as the turn speaker.
func (a *Agent) Role() string { return a.config.Role }

// HasToolAccess reports whether the agent can request tool calls at all.
func (a *Agent) HasToolAccess() bool {
	return a.connector != nil && len(a.config.Capabilities) > 0
}

// RespondOptions adjusts a single Respond invocation.
type RespondOptions struct {
	// AllowTools permits the response to be a tool request. The runner
	// clears it once the per-turn tool call cap is reached.
	AllowTools bool
	// Corrective, when non-empty, is appended as final guidance. Used for
	// the one-shot retry after a malformed turn and for forcing a final
	// utterance after tool exhaustion.
	Corrective string
}

// Respond produces the agent's next turn from the visible history. The
// returned turn is un-sequenced; the runner assigns Seq on append.
//
// History must be strictly increasing in sequence number with no gaps.
// Malformed model output is reported as *core.TurnFormatError; transient
// model errors are retried per the agent's retry config before surfacing.
func (a *Agent) Respond(ctx context.Context, history []core.Turn, opts RespondOptions) (core.Turn, error) {
	if err := core.ValidateHistory(history); err != nil {
		return core.Turn{}, fmt.Errorf("invalid history for %s: %w", a.config.Role, err)
	}

	req := a.buildRequest(history, opts)

	resp, err := retry.Do(ctx, a.retryCfg, func() (*model.Response, error) {
		return a.llm.Generate(ctx, req)
	})
	if err != nil {
		return core.Turn{}, fmt.Errorf("model call for %s failed: %w", a.config.Role, err)
	}

	turn, err := a.parseResponse(resp, opts.AllowTools)
	if err != nil {
		return core.Turn{}, err
	}

	a.logger.Debug("agent.responded",
		"role", a.config.Role,
		"kind", string(turn.Kind),
		"model", a.llm.Info().Name,
	)

	return turn, nil
}

// buildRequest renders the visible history into a model request from this
// agent's perspective: own turns become assistant/tool messages, other
// speakers' utterances and verdicts become labeled user messages, and other
// speakers' tool traffic is elided as internal detail.
func (a *Agent) buildRequest(history []core.Turn, opts RespondOptions) model.Request {
	req := model.Request{
		Instructions: a.config.Instructions,
		Temperature:  a.config.Temperature,
	}

	for _, t := range history {
		own := t.Speaker == a.config.Role
		switch t.Kind {
		case core.KindUtterance, core.KindVerdict:
			if own {
				req.Messages = append(req.Messages, model.Message{Role: "assistant", Content: t.Content})
			} else {
				req.Messages = append(req.Messages, model.Message{
					Role:    "user",
					Content: fmt.Sprintf("[%s] %s", t.Speaker, t.Content),
				})
			}
		case core.KindToolRequest:
			if !own || t.ToolCall == nil {
				continue
			}
			args, err := json.Marshal(t.ToolCall.Arguments)
			if err != nil {
				args = []byte("{}")
			}
			req.Messages = append(req.Messages, model.Message{
				Role: "assistant",
				ToolCalls: []model.ToolCall{{
					ID:        t.ToolCall.ID,
					Name:      t.ToolCall.Name,
					Arguments: string(args),
				}},
			})
		case core.KindToolResult:
			if !own || t.ToolResult == nil {
				continue
			}
			content := t.ToolResult.Content
			if t.ToolResult.Error != "" {
				content = fmt.Sprintf("tool call failed (%s): %s", t.ToolResult.ErrorKind, t.ToolResult.Error)
			}
			req.Messages = append(req.Messages, model.Message{
				Role:       "tool",
				Content:    content,
				ToolCallID: t.ToolResult.CallID,
				Name:       t.ToolResult.Name,
			})
		}
	}

	if opts.Corrective != "" {
		req.Messages = append(req.Messages, model.Message{Role: "user", Content: opts.Corrective})
	}

	if opts.AllowTools && a.HasToolAccess() {
		for _, def := range a.connector.Definitions() {
			if !a.config.HasCapability(def.Name) {
				continue
			}
			req.Tools = append(req.Tools, model.ToolDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			})
		}
	}

	return req
}

// parseResponse converts a model completion into a turn, classifying verdicts
// by the configured markers.
func (a *Agent) parseResponse(resp *model.Response, allowTools bool) (core.Turn, error) {
	if len(resp.ToolCalls) > 0 {
		if !allowTools {
			return core.Turn{}, &core.TurnFormatError{
				Speaker: a.config.Role,
				Reason:  "tool call requested without tool access",
			}
		}
		call := resp.ToolCalls[0]
		args := map[string]any{}
		if call.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
				return core.Turn{}, &core.TurnFormatError{
					Speaker: a.config.Role,
					Reason:  fmt.Sprintf("unparseable tool arguments for %s: %v", call.Name, err),
				}
			}
		}
		id := call.ID
		if id == "" {
			id = core.NewID()
		}
		return core.NewToolRequestTurn(a.config.Role, core.ToolCall{
			ID:        id,
			Name:      call.Name,
			Arguments: args,
		}), nil
	}

	content := strings.TrimSpace(resp.Text)
	if content == "" {
		return core.Turn{}, &core.TurnFormatError{Speaker: a.config.Role, Reason: "empty response"}
	}

	if a.isVerdict(content) {
		return core.NewVerdictTurn(a.config.Role, content), nil
	}
	return core.NewUtteranceTurn(a.config.Role, content), nil
}

// isVerdict reports whether content carries one of the configured verdict
// markers. Matching is case-insensitive and positional only in the sense
// that the marker must appear somewhere in the content, mirroring how the
// collaboration protocols phrase their decisions.
func (a *Agent) isVerdict(content string) bool {
	upper := strings.ToUpper(content)
	for _, marker := range a.config.VerdictMarkers {
		if strings.Contains(upper, strings.ToUpper(marker)) {
			return true
		}
	}
	return false
}
