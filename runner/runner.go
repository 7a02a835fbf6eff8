// Package runner drives a collaboration run: it selects the next speaking
// agent per the configured turn-taking policy, mediates the tool-call
// sub-loop, appends turns to the transcript with fresh sequence numbers,
// evaluates termination and enforces the round budget.
//
// A run is strictly sequential: one outstanding agent response at a time,
// with the runner as the sole writer of the transcript. Independent runs are
// fully isolated and may execute concurrently.
package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/colloquy/agent"
	"github.com/hupe1980/colloquy/core"
	"github.com/hupe1980/colloquy/logging"
	"github.com/hupe1980/colloquy/policy"
	"github.com/hupe1980/colloquy/tool"
)

// TaskSpeaker is the pseudo-speaker of the initial task turn.
const TaskSpeaker = "user"

// Options holds dependency and configuration overrides passed to New.
type Options struct {
	// Connector serves tool requests from agents with capabilities. Nil
	// disables the tool sub-loop entirely.
	Connector tool.Connector
	// Observer receives every appended turn, in order, so an external
	// presentation layer can render a live transcript.
	Observer func(core.Turn)
	// Logger receives structured run events.
	Logger logging.Logger
}

// Runner is the collaboration state machine. A Runner is immutable after
// construction and safe to use for multiple sequential or concurrent runs;
// each Run call owns its own transcript.
type Runner struct {
	cfg        core.RunConfig
	agents     map[string]*agent.Agent
	turnPolicy policy.TurnPolicy
	detector   policy.Detector
	connector  tool.Connector
	observer   func(core.Turn)
	logger     logging.Logger
}

// New validates the configuration and builds a runner. Configuration
// failures wrap core.ErrConfigInvalid and produce no partial run.
func New(cfg core.RunConfig, agents []*agent.Agent, optFns ...func(o *Options)) (*Runner, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	byRole := make(map[string]*agent.Agent, len(agents))
	for _, a := range agents {
		byRole[a.Role()] = a
	}
	for _, ac := range cfg.Agents {
		if _, ok := byRole[ac.Role]; !ok {
			return nil, fmt.Errorf("%w: no agent provided for role %q", core.ErrConfigInvalid, ac.Role)
		}
	}

	turnPolicy, detector, err := policy.ForConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:        cfg,
		agents:     byRole,
		turnPolicy: turnPolicy,
		detector:   detector,
		connector:  opts.Connector,
		observer:   opts.Observer,
		logger:     opts.Logger,
	}, nil
}

// run carries the mutable state of one Run invocation.
type run struct {
	id         string
	transcript *core.Transcript
	rounds     int
}

// Run executes the collaboration until approval, budget exhaustion or an
// unrecoverable error. The returned result is never nil and always carries
// the full partial transcript; err is non-nil exactly when the result status
// is StatusFailed.
func (r *Runner) Run(ctx context.Context) (*core.RunResult, error) {
	st := &run{
		id:         core.NewID(),
		transcript: core.NewTranscript(),
	}

	r.logger.Info("run.start",
		"run_id", st.id,
		"scenario", string(r.cfg.Scenario),
		"max_rounds", r.cfg.MaxRounds,
		"agents", len(r.cfg.Agents),
	)

	if r.cfg.Task != "" {
		r.append(st, core.NewUtteranceTurn(TaskSpeaker, r.cfg.Task))
	}

	for {
		if err := ctx.Err(); err != nil {
			return r.fail(st, core.FailureCancelled, core.ErrCancelled)
		}

		role := r.turnPolicy.Next(st.transcript.Snapshot())
		if err := r.takeTurn(ctx, st, role); err != nil {
			return r.fail(st, classifyFailure(err), err)
		}

		decision := r.detector.Evaluate(st.transcript.Snapshot())
		if decision.Kind == policy.DecideApproved {
			if r.roundCompleted(role) {
				st.rounds++
			}
			return r.conclude(st, core.StatusApproved, decision.Artifact), nil
		}
		if decision.Kind == policy.DecideRejected {
			r.logger.Debug("run.rejected", "run_id", st.id, "feedback", decision.Feedback)
		}

		if r.roundCompleted(role) {
			st.rounds++
			r.logger.Debug("run.round.completed", "run_id", st.id, "rounds", st.rounds)
			if st.rounds >= r.cfg.MaxRounds {
				return r.conclude(st, core.StatusExhausted, ""), nil
			}
		}
	}
}

// roundCompleted reports whether the given speaker finishing a turn closes
// one budget round. The unit is fixed per scenario: the refine scenario
// counts one producer+reviewer exchange (the reviewer closes it), the
// consensus scenario counts every investigator turn (the seeder's seed turn
// is free).
func (r *Runner) roundCompleted(role string) bool {
	switch r.cfg.Scenario {
	case core.ScenarioRefine:
		return role == r.cfg.Reviewer
	case core.ScenarioConsensus:
		return role != r.cfg.Seeder
	default:
		return true
	}
}

// takeTurn runs one conversational turn for the given role, including the
// tool-call sub-loop and the single corrective retry for malformed output.
// All produced turns are appended to the transcript; a returned error is
// fatal for the run.
func (r *Runner) takeTurn(ctx context.Context, st *run, role string) error {
	ag := r.agents[role]
	maxCalls := r.cfg.EffectiveToolCallCap()

	allowTools := ag.HasToolAccess() && r.connector != nil
	toolCalls := 0
	corrective := ""
	formatRetried := false

	for {
		if err := ctx.Err(); err != nil {
			return core.ErrCancelled
		}

		turn, err := ag.Respond(ctx, st.transcript.Snapshot(), agent.RespondOptions{
			AllowTools: allowTools,
			Corrective: corrective,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return core.ErrCancelled
			}
			if _, ok := core.AsTurnFormatError(err); ok && !formatRetried {
				formatRetried = true
				corrective = "Your previous reply was malformed. Respond again following your instructions, as plain text."
				r.logger.Warn("run.turn.malformed", "run_id", st.id, "role", role, "error", err.Error())
				continue
			}
			return err
		}
		corrective = ""

		appended := r.append(st, turn)

		if turn.Kind != core.KindToolRequest {
			return nil
		}

		// Tool sub-loop. Rejected results count against the cap the
		// same as successes to bound runaway retry loops.
		toolCalls++
		if toolCalls > maxCalls {
			r.append(st, core.NewToolResultTurn(role, core.ToolResult{
				CallID:    turn.ToolCall.ID,
				Name:      turn.ToolCall.Name,
				Error:     fmt.Sprintf("tool call limit of %d per turn exceeded", maxCalls),
				ErrorKind: string(tool.ErrorRejected),
			}))
			r.logger.Warn("run.tool.cap_exceeded", "run_id", st.id, "role", role, "cap", maxCalls)
			allowTools = false
			corrective = "You have used up your tool calls for this turn. Produce your final answer now without requesting tools."
			continue
		}

		if err := r.serveToolRequest(ctx, st, role, appended); err != nil {
			return err
		}
	}
}

// serveToolRequest invokes the connector for an appended tool request turn
// and records the outcome. Unreachable and rejected failures are recoverable
// and surface to the agent as a tool result turn; unknown capabilities are a
// configuration defect and fatal.
func (r *Runner) serveToolRequest(ctx context.Context, st *run, role string, request core.Turn) error {
	call := *request.ToolCall

	out, err := r.connector.Invoke(ctx, call.Name, call.Arguments)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return core.ErrCancelled
		}
		kind := tool.KindOf(err)
		if kind == tool.ErrorUnknownCapability {
			return err
		}
		if kind == "" {
			kind = tool.ErrorUnreachable
		}
		r.append(st, core.NewToolResultTurn(role, core.ToolResult{
			CallID:    call.ID,
			Name:      call.Name,
			Error:     err.Error(),
			ErrorKind: string(kind),
		}))
		r.logger.Warn("run.tool.failed",
			"run_id", st.id,
			"role", role,
			"capability", call.Name,
			"kind", string(kind),
		)
		return nil
	}

	r.append(st, core.NewToolResultTurn(role, core.ToolResult{
		CallID:  call.ID,
		Name:    call.Name,
		Content: out.Content,
	}))
	return nil
}

// append stores a turn with a fresh sequence number and notifies the
// observer and log.
func (r *Runner) append(st *run, turn core.Turn) core.Turn {
	appended := st.transcript.Append(turn)
	r.logger.Debug("run.turn.appended",
		"run_id", st.id,
		"seq", appended.Seq,
		"speaker", appended.Speaker,
		"kind", string(appended.Kind),
	)
	if r.observer != nil {
		r.observer(appended)
	}
	return appended
}

// conclude builds a successful or exhausted terminal result.
func (r *Runner) conclude(st *run, status core.Status, artifact string) *core.RunResult {
	r.logger.Info("run.concluded",
		"run_id", st.id,
		"status", string(status),
		"rounds", st.rounds,
		"turns", st.transcript.Len(),
	)
	return &core.RunResult{
		RunID:      st.id,
		Status:     status,
		Artifact:   artifact,
		RoundsUsed: st.rounds,
		Transcript: st.transcript.Snapshot(),
	}
}

// fail builds the failed terminal result, preserving the partial transcript.
func (r *Runner) fail(st *run, kind core.FailureKind, err error) (*core.RunResult, error) {
	failureTurn := 0
	if last, ok := st.transcript.LastTurn(); ok {
		failureTurn = last.Seq
	}
	r.logger.Error("run.failed",
		"run_id", st.id,
		"kind", string(kind),
		"turn", failureTurn,
		"error", err.Error(),
	)
	return &core.RunResult{
		RunID:       st.id,
		Status:      core.StatusFailed,
		RoundsUsed:  st.rounds,
		FailureKind: kind,
		FailureTurn: failureTurn,
		Err:         err,
		Transcript:  st.transcript.Snapshot(),
	}, err
}

// classifyFailure maps a fatal error to its failure kind.
func classifyFailure(err error) core.FailureKind {
	switch {
	case errors.Is(err, core.ErrCancelled):
		return core.FailureCancelled
	case tool.KindOf(err) == tool.ErrorUnknownCapability:
		return core.FailureUnknownCapability
	default:
		if _, ok := core.AsTurnFormatError(err); ok {
			return core.FailureTurnFormat
		}
		return core.FailureModel
	}
}
