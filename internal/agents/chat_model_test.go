package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockPilot/config"
)

func TestNewChatModelRequiresKey(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	_, err := NewChatModel(context.Background(), cfg)
	assert.True(t, errors.Is(err, config.ErrCredentialMissing))
}

func TestNewChatModelProviders(t *testing.T) {
	ctx := context.Background()

	for _, provider := range []string{"openai", "deepseek"} {
		t.Run(provider, func(t *testing.T) {
			cfg := config.DefaultConfigWithRoot(t.TempDir())
			cfg.LLMProvider = provider
			cfg.APIKey = "sk-test"
			cfg.BackendURL = "http://127.0.0.1:1/v1"

			cm, err := NewChatModel(ctx, cfg)
			require.NoError(t, err)
			assert.NotNil(t, cm)
		})
	}

	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.LLMProvider = "bard"
	cfg.APIKey = "sk-test"
	_, err := NewChatModel(ctx, cfg)
	assert.Error(t, err)
}
