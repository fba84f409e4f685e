package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/internal/agents"
	"github.com/dyike/StockPilot/internal/assistant"
	"github.com/dyike/StockPilot/internal/dataflows"
	"github.com/dyike/StockPilot/internal/logging"
	"github.com/dyike/StockPilot/internal/tools"
)

type chatModelFactory func(ctx context.Context, cfg *config.Config) (model.ToolCallingChatModel, error)

type providerFactory func(cfg *config.Config, logger zerolog.Logger) (dataflows.Provider, error)

// app carries the state shared by every subcommand.
type app struct {
	configPath string
	debug      bool

	cfg    *config.Config
	mgr    *config.Manager
	logger zerolog.Logger
	out    io.Writer

	newChatModel chatModelFactory
	newProvider  providerFactory
}

func newApp() *app {
	return &app{
		out:          os.Stdout,
		logger:       zerolog.Nop(),
		newChatModel: agents.NewChatModel,
		newProvider:  dataflows.NewProvider,
	}
}

// loadConfig reads the optional config file, applies the environment on top
// and prepares directories and logging.
func (a *app) loadConfig() error {
	if a.configPath != "" {
		mgr, err := config.NewManager(config.WithConfigPath(a.configPath))
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg := mgr.Get()
		cfg.LoadEnv()
		a.mgr = mgr
		a.cfg = &cfg
	} else {
		a.cfg = config.DefaultConfig()
	}
	if a.debug {
		a.cfg.Debug = true
		a.cfg.LogLevel = "debug"
	}

	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := a.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	logCfg := logging.DefaultLogConfig(a.cfg.LogPath())
	logCfg.Level = a.cfg.LogLevel
	logCfg.Console = a.cfg.Debug
	a.logger = logging.New(logCfg)
	if a.mgr != nil {
		a.mgr.SetLogger(a.logger.With().Str("component", "config").Logger())
	}
	return nil
}

func (a *app) newRegistry() (*tools.Registry, error) {
	provider, err := a.newProvider(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	return tools.NewRegistry(provider, tools.Options{
		ChartPath:    a.cfg.ChartPath,
		RSIPeriod:    a.cfg.RSIPeriod,
		FetchTimeout: a.cfg.MarketDataTimeout,
		Logger:       a.logger,
	}), nil
}

// newSession resolves the credential and wires model, tools and state.
func (a *app) newSession(ctx context.Context) (*assistant.Session, error) {
	if err := a.cfg.ResolveAPIKey(); err != nil {
		return nil, err
	}

	registry, err := a.newRegistry()
	if err != nil {
		return nil, err
	}
	cm, err := a.newChatModel(ctx, a.cfg)
	if err != nil {
		return nil, err
	}

	a.logger.Info().
		Str("llm_provider", a.cfg.LLMProvider).
		Str("chat_model", a.cfg.ChatModel).
		Str("market_data", a.cfg.MarketDataProvider).
		Msg("session started")

	return assistant.NewSession(cm, registry, assistant.Options{
		ModelTimeout: a.cfg.ModelTimeout,
		SystemPrompt: a.cfg.SystemPrompt,
		Logger:       a.logger,
	})
}

// applyConfig picks up a changed model id or system prompt from the watched
// file. Environment overrides still win over the file.
func (a *app) applyConfig(ctx context.Context, sess *assistant.Session, next config.Config) {
	next.LoadEnv()
	if next.SystemPrompt != a.cfg.SystemPrompt {
		a.cfg.SystemPrompt = next.SystemPrompt
		sess.SetSystemPrompt(next.SystemPrompt)
		printInfo(a.out, "System prompt updated.")
	}
	if next.ChatModel == a.cfg.ChatModel {
		return
	}

	previous := a.cfg.ChatModel
	a.cfg.ChatModel = next.ChatModel
	cm, err := a.newChatModel(ctx, a.cfg)
	if err == nil {
		err = sess.SetModel(cm)
	}
	if err != nil {
		a.cfg.ChatModel = previous
		a.logger.Error().Err(err).Str("chat_model", next.ChatModel).Msg("switch chat model failed")
		printError(a.out, err)
		return
	}
	a.logger.Info().Str("chat_model", next.ChatModel).Msg("chat model switched")
	printInfo(a.out, fmt.Sprintf("Now using %s.", next.ChatModel))
}
