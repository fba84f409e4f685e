package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyike/StockPilot/config"
)

// Version is the release reported by the version command.
var Version = "0.1.0"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stockpilot",
		Short: "StockPilot - chat with a language model about stocks",
		Long: `StockPilot answers questions about a stock by letting a language model call
price, moving-average, RSI, MACD and charting tools on one year of daily data.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			if cmd.Name() == "version" {
				return nil
			}
			return a.loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, a)
		},
	}

	rootCmd.AddCommand(newChatCmd(a))
	rootCmd.AddCommand(newAskCmd(a))
	rootCmd.AddCommand(newToolsCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging to the console")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Configuration file path")

	return rootCmd
}

func newChatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, a)
		},
	}
}

func newAskCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [QUESTION]",
		Short: "Ask a single question and print the answer",
		Long: `Ask a single question and print the answer.
Example: stockpilot ask "What is the 20 day SMA of AAPL?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := a.newSession(ctx)
			if err != nil {
				return reportFatal(a, err)
			}

			reply, err := sess.Turn(ctx, strings.Join(args, " "))
			if err != nil {
				return reportFatal(a, err)
			}
			printReply(a.out, reply)
			return nil
		},
	}
}

func newToolsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := a.newRegistry()
			if err != nil {
				return reportFatal(a, err)
			}
			printTools(a.out, registry.List())
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "StockPilot v%s\n", Version)
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			path := ""
			if a.mgr != nil {
				path = a.mgr.Path()
			}
			printConfig(a.out, a.cfg, path)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Change one setting in the config file",
		Long: "Change one setting in the file given by --config.\nKeys: " +
			strings.Join(config.SettableKeys(), ", "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.mgr == nil {
				return errors.New("config set needs a config file, pass --config PATH")
			}
			if _, err := a.mgr.Set(args[0], args[1]); err != nil {
				return err
			}
			printInfo(a.out, fmt.Sprintf("Set %s in %s.", strings.ToLower(args[0]), a.mgr.Path()))
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(a)
		},
	})

	return configCmd
}

func validateConfig(a *app) error {
	// Validate already ran while loading.
	printCheck(a.out, "Configuration values", nil)

	keyErr := a.cfg.ResolveAPIKey()
	printCheck(a.out, "LLM API key", keyErr)

	provider, providerErr := a.newProvider(a.cfg, a.logger)
	printCheck(a.out, "Market data provider "+a.cfg.MarketDataProvider, providerErr)
	if closer, ok := provider.(io.Closer); ok {
		_ = closer.Close()
	}

	if err := errors.Join(keyErr, providerErr); err != nil {
		return err
	}
	printInfo(a.out, "Configuration is valid.")
	return nil
}

// reportedError marks an error that has already been shown to the user.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

// reportFatal prints err and returns it so the process exits non-zero.
func reportFatal(a *app, err error) error {
	if errors.Is(err, config.ErrCredentialMissing) {
		a.logger.Error().Err(err).Msg("missing credential")
	}
	printError(a.out, err)
	return &reportedError{err: err}
}
