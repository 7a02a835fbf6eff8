// Package colloquy provides a high-level façade over the runner, agent and
// policy packages for orchestrating turn-based multi-agent collaborations.
// Most applications interact with this package by:
//  1. Creating a Colloquy via New() with a model (optionally a tool connector
//     and a structured logger)
//  2. Running a validated core.RunConfig via Run()
//
// The façade builds one agent per configured role and delegates the loop to
// runner.Runner while keeping setup concise. Lower-level control (per-agent
// models, custom retry configs) is available by using the runner package
// directly.
package colloquy

import (
	"context"

	"github.com/hupe1980/colloquy/agent"
	"github.com/hupe1980/colloquy/core"
	"github.com/hupe1980/colloquy/logging"
	"github.com/hupe1980/colloquy/model"
	"github.com/hupe1980/colloquy/runner"
	"github.com/hupe1980/colloquy/tool"
)

// Options configures the Colloquy instance.
type Options struct {
	// Connector grants tool access to agents with configured capabilities.
	Connector tool.Connector
	// Observer receives every appended turn for live transcript rendering.
	Observer func(core.Turn)
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
}

// Colloquy is the high-level façade binding one model to run configurations.
type Colloquy struct {
	llm  model.Model
	opts Options
}

// New creates a Colloquy sharing a single model across all agents.
func New(llm model.Model, optFns ...func(o *Options)) *Colloquy {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Colloquy{llm: llm, opts: opts}
}

// Run executes one collaboration described by cfg, building an agent per
// configured role. The result always carries the full transcript; err is
// non-nil exactly when the run failed.
func (c *Colloquy) Run(ctx context.Context, cfg core.RunConfig) (*core.RunResult, error) {
	agents := make([]*agent.Agent, 0, len(cfg.Agents))
	for _, ac := range cfg.Agents {
		agents = append(agents, agent.New(ac, c.llm, func(o *agent.Options) {
			o.Connector = c.opts.Connector
			o.Logger = c.opts.Logger
		}))
	}

	r, err := runner.New(cfg, agents, func(o *runner.Options) {
		o.Connector = c.opts.Connector
		o.Observer = c.opts.Observer
		o.Logger = c.opts.Logger
	})
	if err != nil {
		return nil, err
	}

	return r.Run(ctx)
}
