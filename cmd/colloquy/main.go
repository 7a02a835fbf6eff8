// Command colloquy runs one of the bundled collaboration scenarios against an
// OpenAI-compatible endpoint and streams the transcript to stdout.
//
// Configuration comes from the environment (a .env file is honored):
//
//	GITHUB_TOKEN      token for the GitHub Models endpoint (required)
//	SCENARIO          "poetry" (default) or "mystery"
//	MODEL             chat model id, default "openai/gpt-4.1"
//	PING_PONG_LIMIT   refine round budget, default 5
//	MYSTERY_MAX_TURNS consensus turn budget, default 8
//	QUOTESERVER       path to the quoteserver binary, default "quoteserver"
//	LOG_LEVEL         "debug" for verbose run logging
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hupe1980/colloquy/agent"
	"github.com/hupe1980/colloquy/core"
	"github.com/hupe1980/colloquy/logging"
	"github.com/hupe1980/colloquy/model/openai"
	"github.com/hupe1980/colloquy/runner"
	"github.com/hupe1980/colloquy/tool"
	toolmcp "github.com/hupe1980/colloquy/tool/mcp"
)

const (
	defaultEndpoint       = "https://models.github.ai/inference"
	defaultModel          = "openai/gpt-4.1"
	defaultPingPongLimit  = 5
	defaultMysteryBudget  = 8
	defaultQuoteServerBin = "quoteserver"
)

func main() {
	_ = godotenv.Load()

	level := slog.LevelInfo
	if strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug") {
		level = slog.LevelDebug
	}
	logger := logging.NewTextLogger(os.Stderr, level)

	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		logger.Error("colloquy.config", "error", "GITHUB_TOKEN is not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	llm := openai.New(func(o *openai.Options) {
		o.APIKey = token
		o.BaseURL = defaultEndpoint
		o.Model = envOr("MODEL", defaultModel)
	})

	var (
		result *core.RunResult
		err    error
	)
	switch scenario := envOr("SCENARIO", "poetry"); scenario {
	case "poetry":
		result, err = runPoetry(ctx, llm, logger)
	case "mystery":
		result, err = runMystery(ctx, llm, logger)
	default:
		logger.Error("colloquy.config", "error", fmt.Sprintf("unknown scenario %q", scenario))
		os.Exit(1)
	}

	if err != nil {
		logger.Error("colloquy.run", "error", err.Error())
		os.Exit(1)
	}

	fmt.Println()
	fmt.Printf("=== %s after %d round(s) ===\n", result.Status, result.RoundsUsed)
	if result.Artifact != "" {
		fmt.Println(result.Artifact)
	}
}

// runPoetry is the two-party refine loop: a poet drafts, a critic reviews
// until the poem is approved or the exchange budget runs out.
func runPoetry(ctx context.Context, llm *openai.Model, logger logging.Logger) (*core.RunResult, error) {
	poet := core.AgentConfig{
		Role:  "poet",
		Label: "Poet",
		Instructions: "You are a poet. Write a short poem on the requested theme. " +
			"When the critic asks for revisions, rework the poem accordingly and reply " +
			"with the full revised poem only.",
		Temperature: 0.9,
	}
	critic := core.AgentConfig{
		Role:  "critic",
		Label: "Critic",
		Instructions: "You are a poetry critic. Review the latest poem. " +
			"If it is good enough, reply starting with APPROVED followed by a one line reason. " +
			"Otherwise reply starting with REVISE followed by concrete, actionable feedback.",
		Temperature:    0.3,
		VerdictMarkers: []string{"APPROVED", "REVISE"},
	}

	cfg := core.RunConfig{
		Scenario:  core.ScenarioRefine,
		MaxRounds: envInt("PING_PONG_LIMIT", defaultPingPongLimit),
		Agents:    []core.AgentConfig{poet, critic},
		Producer:  "poet",
		Reviewer:  "critic",
		Task:      "Write a short poem about the first light of morning over a sleeping city.",
	}

	agents := []*agent.Agent{
		agent.New(poet, llm, withLogger(logger)),
		agent.New(critic, llm, withLogger(logger)),
	}

	r, err := runner.New(cfg, agents, func(o *runner.Options) {
		o.Observer = printTurn(cfg)
		o.Logger = logger
	})
	if err != nil {
		return nil, err
	}
	return r.Run(ctx)
}

// runMystery is the N-party consensus loop: Sauron seeds a riddle built from
// movie quotes, then Gandalf and Bilbo alternate deductions until Gandalf
// proposes a solution and Bilbo concurs. Both investigators may consult the
// quote tools served by the quoteserver subprocess.
func runMystery(ctx context.Context, llm *openai.Model, logger logging.Logger) (*core.RunResult, error) {
	connector, err := toolmcp.NewStdioConnector(ctx, envOr("QUOTESERVER", defaultQuoteServerBin), os.Environ())
	if err != nil {
		return nil, fmt.Errorf("start quoteserver: %w", err)
	}
	defer connector.Close()

	quoteTools := toolNames(connector)

	sauron := core.AgentConfig{
		Role:  "sauron",
		Label: "Sauron",
		Instructions: "You are Sauron, the riddle master. Use the quote tools to fetch " +
			"a movie quote, then pose a mystery: describe the quote's circumstances " +
			"without revealing who spoke it, and challenge the investigators to name " +
			"the speaker. State the mystery once and do not solve it yourself.",
		Temperature:  0.8,
		Capabilities: quoteTools,
	}
	gandalf := core.AgentConfig{
		Role:  "gandalf",
		Label: "Gandalf",
		Instructions: "You are Gandalf, the lead investigator. Reason about the mystery, " +
			"using the quote tools to check your hunches. When you are confident, reply " +
			"starting with SOLUTION: followed by the speaker and your reasoning. " +
			"Otherwise share your analysis so far.",
		Temperature:    0.5,
		Capabilities:   quoteTools,
		VerdictMarkers: []string{"SOLUTION:"},
	}
	bilbo := core.AgentConfig{
		Role:  "bilbo",
		Label: "Bilbo",
		Instructions: "You are Bilbo, the careful second investigator. Weigh Gandalf's " +
			"reasoning against the evidence, using the quote tools if needed. When " +
			"Gandalf proposes a solution you agree with, reply starting with CONCUR " +
			"and say why. If you disagree, explain the flaw instead.",
		Temperature:    0.5,
		Capabilities:   quoteTools,
		VerdictMarkers: []string{"CONCUR"},
	}

	cfg := core.RunConfig{
		Scenario:  core.ScenarioConsensus,
		MaxRounds: envInt("MYSTERY_MAX_TURNS", defaultMysteryBudget),
		Agents:    []core.AgentConfig{sauron, gandalf, bilbo},
		Seeder:    "sauron",
		Proposer:  "gandalf",
		Verifier:  "bilbo",
		Task:      "Sauron, pose tonight's quote mystery for the investigators.",
	}

	agents := []*agent.Agent{
		agent.New(sauron, llm, withConnector(connector, logger)),
		agent.New(gandalf, llm, withConnector(connector, logger)),
		agent.New(bilbo, llm, withConnector(connector, logger)),
	}

	r, err := runner.New(cfg, agents, func(o *runner.Options) {
		o.Connector = connector
		o.Observer = printTurn(cfg)
		o.Logger = logger
	})
	if err != nil {
		return nil, err
	}
	return r.Run(ctx)
}

// printTurn renders each appended turn as it happens, using display labels.
func printTurn(cfg core.RunConfig) func(core.Turn) {
	labels := map[string]string{}
	for _, a := range cfg.Agents {
		labels[a.Role] = a.Label
	}
	return func(t core.Turn) {
		label, ok := labels[t.Speaker]
		if !ok {
			label = t.Speaker
		}
		switch t.Kind {
		case core.KindToolRequest:
			fmt.Printf("\n[%02d] %s -> tool %s\n", t.Seq, label, t.ToolCall.Name)
		case core.KindToolResult:
			if t.ToolResult.Error != "" {
				fmt.Printf("[%02d] tool %s failed: %s\n", t.Seq, t.ToolResult.Name, t.ToolResult.Error)
			} else {
				fmt.Printf("[%02d] tool %s: %s\n", t.Seq, t.ToolResult.Name, t.ToolResult.Content)
			}
		default:
			fmt.Printf("\n[%02d] %s:\n%s\n", t.Seq, label, t.Content)
		}
	}
}

func withLogger(logger logging.Logger) func(o *agent.Options) {
	return func(o *agent.Options) {
		o.Logger = logger
	}
}

func withConnector(connector tool.Connector, logger logging.Logger) func(o *agent.Options) {
	return func(o *agent.Options) {
		o.Connector = connector
		o.Logger = logger
	}
}

func toolNames(connector tool.Connector) []string {
	defs := connector.Definitions()
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	return names
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
