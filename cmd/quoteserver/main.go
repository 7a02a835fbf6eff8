// Command quoteserver is an MCP server speaking over stdio that exposes two
// Lord of the Rings quote capabilities backed by The One API:
//
//	get_lotr_quote      fetch a quote (random, or by quote_id)
//	describe_lotr_quote describe the context of a quote
//
// Configuration comes from the environment (a .env file is honored):
//
//	ONE_API_KEY  API key for the-one-api.dev (required)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hupe1980/colloquy/logging"
	"github.com/hupe1980/colloquy/quote"
)

const serverVersion = "1.0.0"

var getQuoteSchema = []byte(`{
  "type": "object",
  "properties": {
    "quote_id": {
      "type": "string",
      "description": "Optional id of a specific quote. Omit for a random quote."
    }
  }
}`)

var describeQuoteSchema = []byte(`{
  "type": "object",
  "properties": {
    "quote": {
      "type": "string",
      "description": "The quote text to describe."
    }
  },
  "required": ["quote"]
}`)

func main() {
	_ = godotenv.Load()

	logger := logging.NewTextLogger(os.Stderr, slog.LevelInfo)

	apiKey := os.Getenv("ONE_API_KEY")
	if apiKey == "" {
		logger.Error("quoteserver.config", "error", "ONE_API_KEY is not set")
		os.Exit(1)
	}

	quotes := quote.New(apiKey, func(o *quote.Options) {
		o.Logger = logger
	})

	s := server.NewMCPServer(
		"lotr-quoteserver",
		serverVersion,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewToolWithRawSchema(
			"get_lotr_quote",
			"Fetch a Lord of the Rings movie quote. Returns a random quote unless quote_id names a specific one.",
			getQuoteSchema,
		),
		getQuoteHandler(quotes),
	)
	s.AddTool(
		mcp.NewToolWithRawSchema(
			"describe_lotr_quote",
			"Describe the speaker and movie context of a Lord of the Rings quote.",
			describeQuoteSchema,
		),
		describeQuoteHandler(quotes),
	)

	logger.Info("quoteserver.start", "version", serverVersion)

	if err := server.ServeStdio(s); err != nil {
		logger.Error("quoteserver.stopped", "error", err.Error())
		os.Exit(1)
	}
}

func getQuoteHandler(quotes *quote.Client) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := req.Params.Arguments.(map[string]any)

		var (
			q   *quote.Quote
			err error
		)
		if id, ok := args["quote_id"].(string); ok && id != "" {
			q, err = quotes.ByID(ctx, id)
		} else {
			q, err = quotes.Random(ctx)
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("%q (quote id: %s)", q.Dialog, q.ID)), nil
	}
}

func describeQuoteHandler(quotes *quote.Client) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := req.Params.Arguments.(map[string]any)

		text, ok := args["quote"].(string)
		if !ok || text == "" {
			return mcp.NewToolResultError("missing required argument: quote"), nil
		}

		q, err := quotes.ByDialog(ctx, text)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		desc := fmt.Sprintf(
			"The quote %q is spoken by character %s in movie %s.",
			q.Dialog, q.Character, q.Movie,
		)
		return mcp.NewToolResultText(desc), nil
	}
}
