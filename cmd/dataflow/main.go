// Command dataflow runs every stock tool for one ticker without a language
// model, printing the results as JSON. It is handy for checking a market data
// provider. The tools run through their eino wrappers, the same form a
// compose tool node would call.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cloudwego/eino/components/tool"
	"github.com/rs/zerolog"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/internal/dataflows"
	"github.com/dyike/StockPilot/internal/tools"
)

type toolOutput struct {
	Tool   string `json:"tool"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func main() {
	symbol := "AAPL"
	if len(os.Args) > 1 {
		symbol = os.Args[1]
	}

	if err := run(context.Background(), symbol, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, symbol string, w io.Writer) error {
	cfg := config.DefaultConfig()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	provider, err := dataflows.NewProvider(cfg, logger)
	if err != nil {
		return err
	}
	if closer, ok := provider.(io.Closer); ok {
		defer closer.Close()
	}

	registry := tools.NewRegistry(provider, tools.Options{
		ChartPath:    cfg.ChartPath,
		RSIPeriod:    cfg.RSIPeriod,
		FetchTimeout: cfg.MarketDataTimeout,
		Logger:       logger,
	})
	return runTools(ctx, registry, symbol, w)
}

// runTools invokes each tool once; tool failures are reported in the output.
func runTools(ctx context.Context, registry *tools.Registry, symbol string, w io.Writer) error {
	var outputs []toolOutput
	for _, t := range registry.Tools() {
		info, err := t.Info(ctx)
		if err != nil {
			return err
		}
		invokable, ok := t.(tool.InvokableTool)
		if !ok {
			return fmt.Errorf("tool %s is not invokable", info.Name)
		}

		args := map[string]any{"ticker": symbol}
		if spec, ok := registry.Lookup(info.Name); ok {
			if _, needsWindow := spec.Param("window"); needsWindow {
				args["window"] = 20
			}
		}
		payload, err := json.Marshal(args)
		if err != nil {
			return err
		}

		out := toolOutput{Tool: info.Name}
		if res, err := invokable.InvokableRun(ctx, string(payload)); err != nil {
			out.Error = err.Error()
		} else {
			out.Result = res
		}
		outputs = append(outputs, out)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outputs); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
