// Package policy holds the turn-taking and termination strategies a run is
// parameterized with. Both are data-selected at configuration time (a small
// closed set of variants per scenario) so the runner loop stays free of
// scenario branching.
package policy

import (
	"fmt"

	"github.com/hupe1980/colloquy/core"
)

// DecisionKind classifies a termination evaluation.
type DecisionKind string

const (
	// DecideContinue keeps the collaboration going.
	DecideContinue DecisionKind = "continue"
	// DecideApproved ends the run carrying the accepted artifact.
	DecideApproved DecisionKind = "approved"
	// DecideRejected keeps the loop going with explicit reviewer feedback.
	DecideRejected DecisionKind = "rejected"
)

// Decision is the outcome of evaluating the latest turns.
type Decision struct {
	Kind DecisionKind
	// Artifact carries the accepted content for DecideApproved.
	Artifact string
	// Feedback carries the rejection feedback or the continue reason.
	Feedback string
}

// Detector decides whether the collaboration has reached an accepted state.
// Evaluate is pure: it inspects the turns it is given and holds no state.
//
// Tie-break rule: when a turn's content is ambiguous about approval, the
// detector returns DecideContinue. It never approves on ambiguous output.
type Detector interface {
	Evaluate(recent []core.Turn) Decision
}

// TurnPolicy selects the role that speaks next given the visible history.
type TurnPolicy interface {
	Next(history []core.Turn) string
}

// ForConfig builds the turn-taking policy and termination detector pair
// bound to a validated run configuration.
func ForConfig(cfg core.RunConfig) (TurnPolicy, Detector, error) {
	switch cfg.Scenario {
	case core.ScenarioRefine:
		return NewRoundRobin(cfg.Producer, cfg.Reviewer),
			NewRefineDetector(cfg.Producer, cfg.Reviewer),
			nil
	case core.ScenarioConsensus:
		rotation := make([]string, 0, len(cfg.Agents)-1)
		for _, a := range cfg.Agents {
			if a.Role != cfg.Seeder {
				rotation = append(rotation, a.Role)
			}
		}
		return NewRotation(cfg.Seeder, cfg.Proposer, cfg.Verifier, rotation),
			NewConsensusDetector(cfg.Proposer, cfg.Verifier),
			nil
	default:
		return nil, nil, fmt.Errorf("%w: no policy for scenario %q", core.ErrConfigInvalid, cfg.Scenario)
	}
}

// lastSubstantive walks the history backwards to the most recent utterance
// or verdict spoken by one of the given roles, skipping tool traffic and
// non-participant speakers (such as the initial task).
// prevSubstantive walks the history backwards to the most recent utterance
// or verdict by any speaker, skipping only tool traffic.
func prevSubstantive(turns []core.Turn) (core.Turn, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		if t.Kind == core.KindUtterance || t.Kind == core.KindVerdict {
			return t, true
		}
	}
	return core.Turn{}, false
}

func lastSubstantive(turns []core.Turn, roles ...string) (core.Turn, bool) {
	isRole := func(s string) bool {
		for _, r := range roles {
			if s == r {
				return true
			}
		}
		return false
	}
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		if t.Kind != core.KindUtterance && t.Kind != core.KindVerdict {
			continue
		}
		if isRole(t.Speaker) {
			return t, true
		}
	}
	return core.Turn{}, false
}
