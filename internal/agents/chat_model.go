// Package agents builds the tool-calling chat model used by the assistant.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/dyike/StockPilot/config"
)

const defaultMaxTokens = 2048

// NewChatModel creates the chat model selected by cfg.LLMProvider. The API key
// must already be resolved.
func NewChatModel(ctx context.Context, cfg *config.Config) (model.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, config.ErrCredentialMissing
	}

	switch strings.ToLower(cfg.LLMProvider) {
	case "", "openai":
		maxTokens := defaultMaxTokens
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:   cfg.BackendURL,
			APIKey:    cfg.APIKey,
			Model:     cfg.ChatModel,
			Timeout:   cfg.ModelTimeout,
			MaxTokens: &maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("create openai chat model: %w", err)
		}
		return cm, nil
	case "deepseek":
		cm, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			BaseURL:   cfg.BackendURL,
			APIKey:    cfg.APIKey,
			Model:     cfg.ChatModel,
			Timeout:   cfg.ModelTimeout,
			MaxTokens: defaultMaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("create deepseek chat model: %w", err)
		}
		return cm, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}
