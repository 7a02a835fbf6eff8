package policy

import (
	"strings"

	"github.com/hupe1980/colloquy/core"
)

// Markers recognized in consensus verdicts. The proposer declares
// "SOLUTION: <theory>" and the verifier answers with "CONCUR" to confirm.
const (
	DefaultSolutionMarker = "SOLUTION:"
	DefaultConcurMarker   = "CONCUR"
)

// Rotation is the N-party turn order: the seeder speaks first, then the
// remaining roles rotate in configuration order. The verifier always gets
// the turn immediately after a proposer verdict so confirmations happen on
// adjacent turns.
type Rotation struct {
	seeder         string
	proposer       string
	verifier       string
	order          []string
	solutionMarker string
}

// RotationOptions overrides the solution marker that triggers the
// verifier-next rule.
type RotationOptions struct {
	SolutionMarker string
}

// NewRotation creates the N-party turn policy. order lists the non-seeder
// roles in speaking order.
func NewRotation(seeder, proposer, verifier string, order []string, optFns ...func(o *RotationOptions)) *Rotation {
	opts := RotationOptions{SolutionMarker: DefaultSolutionMarker}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Rotation{
		seeder:         seeder,
		proposer:       proposer,
		verifier:       verifier,
		order:          order,
		solutionMarker: opts.SolutionMarker,
	}
}

// Next implements TurnPolicy.
func (p *Rotation) Next(history []core.Turn) string {
	last, ok := lastSubstantive(history, append([]string{p.seeder}, p.order...)...)
	if !ok {
		return p.seeder
	}
	if last.Speaker == p.seeder {
		if len(p.order) == 0 {
			return p.seeder
		}
		return p.order[0]
	}
	if last.Speaker == p.proposer && last.IsVerdict() &&
		strings.Contains(strings.ToUpper(last.Content), strings.ToUpper(p.solutionMarker)) {
		return p.verifier
	}
	for i, role := range p.order {
		if role == last.Speaker {
			return p.order[(i+1)%len(p.order)]
		}
	}
	return p.order[0]
}

// ConsensusDetector implements the N-party investigative termination policy:
// approved only when the verifier explicitly confirms the proposer's verdict
// on the immediately preceding substantive turn. Everything else continues,
// with the disagreement reason surfaced as feedback.
type ConsensusDetector struct {
	proposer       string
	verifier       string
	solutionMarker string
	concurMarker   string
}

// ConsensusOptions overrides the recognized markers.
type ConsensusOptions struct {
	SolutionMarker string
	ConcurMarker   string
}

// NewConsensusDetector creates the detector with the default markers.
func NewConsensusDetector(proposer, verifier string, optFns ...func(o *ConsensusOptions)) *ConsensusDetector {
	opts := ConsensusOptions{
		SolutionMarker: DefaultSolutionMarker,
		ConcurMarker:   DefaultConcurMarker,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ConsensusDetector{
		proposer:       proposer,
		verifier:       verifier,
		solutionMarker: opts.SolutionMarker,
		concurMarker:   opts.ConcurMarker,
	}
}

// Evaluate implements Detector.
func (d *ConsensusDetector) Evaluate(recent []core.Turn) Decision {
	if len(recent) == 0 {
		return Decision{Kind: DecideContinue}
	}
	last := recent[len(recent)-1]
	if last.Speaker != d.verifier {
		return Decision{Kind: DecideContinue}
	}

	// The confirmation must be adjacent: the substantive turn immediately
	// before the verifier's reply (tool traffic aside) has to be the
	// proposer's solution. A stale solution with discussion in between does
	// not count.
	proposal, ok := prevSubstantive(recent[:len(recent)-1])
	if !ok || proposal.Speaker != d.proposer || !proposal.IsVerdict() ||
		!strings.Contains(strings.ToUpper(proposal.Content), strings.ToUpper(d.solutionMarker)) {
		return Decision{Kind: DecideContinue}
	}

	if strings.Contains(strings.ToUpper(last.Content), strings.ToUpper(d.concurMarker)) {
		return Decision{Kind: DecideApproved, Artifact: proposal.Content}
	}
	return Decision{Kind: DecideContinue, Feedback: "verifier did not concur with the proposed solution"}
}
