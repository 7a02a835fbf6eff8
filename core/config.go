package core

import "fmt"

// Scenario selects the turn-taking and termination policy pair applied to a
// run. The set is closed; policies are picked once at RunConfig construction
// rather than branched on inside the runner loop.
type Scenario string

const (
	// ScenarioRefine is the two-party refine-and-approve loop: a producer
	// and a reviewer alternate until the reviewer approves. One round is
	// one full producer+reviewer exchange.
	ScenarioRefine Scenario = "refine"
	// ScenarioConsensus is the N-party investigative loop: one role seeds a
	// problem and the remaining roles alternate analysis until the proposer
	// and the verifier agree. One round is one investigator turn.
	ScenarioConsensus Scenario = "consensus"
)

// AgentConfig describes one participant. It is immutable once a run starts.
type AgentConfig struct {
	// Role is the machine identifier referenced by scenario bindings.
	Role string
	// Label is the display name used as the turn speaker.
	Label string
	// Instructions is the system instruction text.
	Instructions string
	// Temperature is the sampling temperature passed to the model.
	Temperature float64
	// Capabilities lists the tool names the agent may request. An empty
	// list means the agent has no tool access.
	Capabilities []string
	// VerdictMarkers are content prefixes that classify a response as a
	// verdict turn (for example "APPROVED", "REVISE", "SOLUTION:").
	VerdictMarkers []string
}

// HasCapability reports whether the agent is configured to use the named
// capability.
func (c AgentConfig) HasCapability(name string) bool {
	for _, cap := range c.Capabilities {
		if cap == name {
			return true
		}
	}
	return false
}

// RunConfig is the validated, immutable input of one run.
type RunConfig struct {
	Scenario Scenario
	// MaxRounds is the iteration budget. What constitutes one round is
	// fixed per scenario, see the Scenario constants.
	MaxRounds int
	// ToolCallCap bounds tool calls within a single conversational turn.
	// Zero selects the default cap of 3.
	ToolCallCap int
	// Agents is the ordered list of participants.
	Agents []AgentConfig

	// Producer and Reviewer bind roles for ScenarioRefine.
	Producer string
	Reviewer string

	// Seeder, Proposer and Verifier bind roles for ScenarioConsensus. The
	// seeder states the problem; the proposer and verifier must agree for
	// the run to conclude approved.
	Seeder   string
	Proposer string
	Verifier string

	// Task is the initial instruction handed to the first speaking agent.
	Task string
}

// DefaultToolCallCap bounds tool calls per conversational turn when
// RunConfig.ToolCallCap is unset.
const DefaultToolCallCap = 3

// EffectiveToolCallCap returns the configured cap or the default.
func (c RunConfig) EffectiveToolCallCap() int {
	if c.ToolCallCap > 0 {
		return c.ToolCallCap
	}
	return DefaultToolCallCap
}

// Agent returns the config bound to a role.
func (c RunConfig) Agent(role string) (AgentConfig, bool) {
	for _, a := range c.Agents {
		if a.Role == role {
			return a, true
		}
	}
	return AgentConfig{}, false
}

// Validate fails fast on malformed configuration. All failures wrap
// ErrConfigInvalid so callers can classify them with errors.Is.
func (c RunConfig) Validate() error {
	if c.MaxRounds < 1 {
		return fmt.Errorf("%w: max rounds must be >= 1, got %d", ErrConfigInvalid, c.MaxRounds)
	}
	if len(c.Agents) < 2 {
		return fmt.Errorf("%w: at least 2 agents required, got %d", ErrConfigInvalid, len(c.Agents))
	}
	seen := map[string]bool{}
	for _, a := range c.Agents {
		if a.Role == "" {
			return fmt.Errorf("%w: agent with empty role", ErrConfigInvalid)
		}
		if seen[a.Role] {
			return fmt.Errorf("%w: duplicate agent role %q", ErrConfigInvalid, a.Role)
		}
		seen[a.Role] = true
	}
	switch c.Scenario {
	case ScenarioRefine:
		if !seen[c.Producer] || !seen[c.Reviewer] {
			return fmt.Errorf("%w: refine scenario requires producer and reviewer roles", ErrConfigInvalid)
		}
		if c.Producer == c.Reviewer {
			return fmt.Errorf("%w: producer and reviewer must be distinct roles", ErrConfigInvalid)
		}
	case ScenarioConsensus:
		if len(c.Agents) < 3 {
			return fmt.Errorf("%w: consensus scenario requires at least 3 agents", ErrConfigInvalid)
		}
		if !seen[c.Seeder] || !seen[c.Proposer] || !seen[c.Verifier] {
			return fmt.Errorf("%w: consensus scenario requires seeder, proposer and verifier roles", ErrConfigInvalid)
		}
		if c.Seeder == c.Proposer || c.Seeder == c.Verifier || c.Proposer == c.Verifier {
			return fmt.Errorf("%w: seeder, proposer and verifier must be distinct roles", ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown scenario %q", ErrConfigInvalid, c.Scenario)
	}
	return nil
}
