package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refineConfig() RunConfig {
	return RunConfig{
		Scenario:  ScenarioRefine,
		MaxRounds: 5,
		Agents: []AgentConfig{
			{Role: "poet", Label: "Poet"},
			{Role: "critic", Label: "Critic"},
		},
		Producer: "poet",
		Reviewer: "critic",
		Task:     "write a poem",
	}
}

func consensusConfig() RunConfig {
	return RunConfig{
		Scenario:  ScenarioConsensus,
		MaxRounds: 8,
		Agents: []AgentConfig{
			{Role: "sauron"},
			{Role: "gandalf"},
			{Role: "bilbo"},
		},
		Seeder:   "sauron",
		Proposer: "gandalf",
		Verifier: "bilbo",
	}
}

func TestRunConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *RunConfig)
		wantErr bool
	}{
		{name: "valid refine", mutate: func(c *RunConfig) {}},
		{name: "zero rounds", mutate: func(c *RunConfig) { c.MaxRounds = 0 }, wantErr: true},
		{name: "negative rounds", mutate: func(c *RunConfig) { c.MaxRounds = -1 }, wantErr: true},
		{name: "single agent", mutate: func(c *RunConfig) { c.Agents = c.Agents[:1] }, wantErr: true},
		{name: "empty role", mutate: func(c *RunConfig) { c.Agents[0].Role = "" }, wantErr: true},
		{name: "duplicate role", mutate: func(c *RunConfig) { c.Agents[1].Role = "poet" }, wantErr: true},
		{name: "unknown scenario", mutate: func(c *RunConfig) { c.Scenario = "debate" }, wantErr: true},
		{name: "producer not an agent", mutate: func(c *RunConfig) { c.Producer = "ghost" }, wantErr: true},
		{name: "producer equals reviewer", mutate: func(c *RunConfig) { c.Reviewer = "poet" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := refineConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrConfigInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunConfigValidateConsensus(t *testing.T) {
	cfg := consensusConfig()
	assert.NoError(t, cfg.Validate())

	twoParty := consensusConfig()
	twoParty.Agents = twoParty.Agents[:2]
	assert.ErrorIs(t, twoParty.Validate(), ErrConfigInvalid)

	missingVerifier := consensusConfig()
	missingVerifier.Verifier = "ghost"
	assert.ErrorIs(t, missingVerifier.Validate(), ErrConfigInvalid)

	overlapping := consensusConfig()
	overlapping.Verifier = "gandalf"
	assert.ErrorIs(t, overlapping.Validate(), ErrConfigInvalid)
}

func TestEffectiveToolCallCap(t *testing.T) {
	cfg := refineConfig()
	assert.Equal(t, DefaultToolCallCap, cfg.EffectiveToolCallCap())

	cfg.ToolCallCap = 1
	assert.Equal(t, 1, cfg.EffectiveToolCallCap())
}

func TestAgentLookup(t *testing.T) {
	cfg := refineConfig()

	ac, ok := cfg.Agent("critic")
	require.True(t, ok)
	assert.Equal(t, "Critic", ac.Label)

	_, ok = cfg.Agent("ghost")
	assert.False(t, ok)
}

func TestHasCapability(t *testing.T) {
	ac := AgentConfig{Role: "gandalf", Capabilities: []string{"get_lotr_quote"}}
	assert.True(t, ac.HasCapability("get_lotr_quote"))
	assert.False(t, ac.HasCapability("describe_lotr_quote"))
}
