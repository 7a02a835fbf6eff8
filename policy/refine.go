package policy

import (
	"strings"

	"github.com/hupe1980/colloquy/core"
)

// Markers recognized in refine verdicts. The reviewer protocol asks for
// "APPROVED: <explanation>" or "REVISE: <actionable feedback>".
const (
	DefaultApproveMarker = "APPROVED"
	DefaultReviseMarker  = "REVISE"
)

// RoundRobin alternates strictly between a producer and a reviewer. Tool
// traffic does not advance the rotation; only utterances and verdicts count
// as a completed speaking turn.
type RoundRobin struct {
	producer string
	reviewer string
}

// NewRoundRobin creates the two-party rotation. The producer speaks first.
func NewRoundRobin(producer, reviewer string) *RoundRobin {
	return &RoundRobin{producer: producer, reviewer: reviewer}
}

// Next implements TurnPolicy.
func (p *RoundRobin) Next(history []core.Turn) string {
	last, ok := lastSubstantive(history, p.producer, p.reviewer)
	if !ok || last.Speaker == p.reviewer {
		return p.producer
	}
	return p.reviewer
}

// RefineDetector implements the two-party refine-and-approve termination
// policy: the run is approved when the reviewer's verdict explicitly signals
// acceptance, rejected (loop continues with feedback) when it explicitly
// asks for revision, and continues on anything ambiguous.
type RefineDetector struct {
	producer      string
	reviewer      string
	approveMarker string
	reviseMarker  string
}

// RefineOptions overrides the recognized verdict markers.
type RefineOptions struct {
	ApproveMarker string
	ReviseMarker  string
}

// NewRefineDetector creates the detector with the default markers.
func NewRefineDetector(producer, reviewer string, optFns ...func(o *RefineOptions)) *RefineDetector {
	opts := RefineOptions{
		ApproveMarker: DefaultApproveMarker,
		ReviseMarker:  DefaultReviseMarker,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RefineDetector{
		producer:      producer,
		reviewer:      reviewer,
		approveMarker: opts.ApproveMarker,
		reviseMarker:  opts.ReviseMarker,
	}
}

// Evaluate implements Detector.
func (d *RefineDetector) Evaluate(recent []core.Turn) Decision {
	if len(recent) == 0 {
		return Decision{Kind: DecideContinue}
	}
	last := recent[len(recent)-1]
	if last.Speaker != d.reviewer {
		return Decision{Kind: DecideContinue}
	}
	if !last.IsVerdict() {
		return Decision{Kind: DecideContinue, Feedback: "reviewer reply carries no recognizable verdict"}
	}

	// Markers must lead the verdict. A rejection that merely mentions the
	// approval marker ("REVISE: ... cannot be APPROVED yet") must never
	// terminate the run.
	upper := strings.ToUpper(strings.TrimSpace(last.Content))
	switch {
	case strings.HasPrefix(upper, strings.ToUpper(d.approveMarker)):
		artifact := last.Content
		if produced, ok := lastSubstantive(recent[:len(recent)-1], d.producer); ok {
			artifact = produced.Content
		}
		return Decision{Kind: DecideApproved, Artifact: artifact}
	case strings.HasPrefix(upper, strings.ToUpper(d.reviseMarker)):
		return Decision{Kind: DecideRejected, Feedback: last.Content}
	default:
		return Decision{Kind: DecideContinue, Feedback: "reviewer verdict is ambiguous"}
	}
}
