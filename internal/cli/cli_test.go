package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/StockPilot/config"
	"github.com/dyike/StockPilot/internal/assistant"
	"github.com/dyike/StockPilot/internal/dataflows"
	"github.com/dyike/StockPilot/internal/models"
)

type stubChatModel struct {
	replies []*schema.Message
	calls   *int
}

func (m *stubChatModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	n := *m.calls
	*m.calls++
	if n >= len(m.replies) {
		return nil, errors.New("no scripted reply")
	}
	return m.replies[n], nil
}

func (m *stubChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *stubChatModel) WithTools(_ []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) FetchDailyHistory(_ context.Context, ticker string) (*models.PriceSeries, error) {
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	return models.NewPriceSeries(ticker, []models.PricePoint{
		{Date: day, Close: 180},
		{Date: day.AddDate(0, 0, 1), Close: 182.5},
	}), nil
}

func testEnv(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv("STOCKPILOT_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("STOCKPILOT_API_KEY_FILE", filepath.Join(dir, "API_KEY"))
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("MARKET_DATA_PROVIDER", "")
	t.Setenv("STOCKPILOT_CHAT_MODEL", "")
	t.Setenv("STOCKPILOT_SYSTEM_PROMPT", "")
	return dir
}

func testApp(replies ...*schema.Message) *app {
	calls := 0
	a := newApp()
	a.newChatModel = func(context.Context, *config.Config) (model.ToolCallingChatModel, error) {
		return &stubChatModel{replies: replies, calls: &calls}, nil
	}
	a.newProvider = func(*config.Config, zerolog.Logger) (dataflows.Provider, error) {
		return stubProvider{}, nil
	}
	return a
}

func execute(a *app, args ...string) (string, error) {
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(newApp(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "StockPilot v"+Version)
}

func TestToolsCommand(t *testing.T) {
	testEnv(t)
	out, err := execute(testApp(), "tools")
	require.NoError(t, err)
	for _, name := range []string{"get_stock_price", "calculate_SMA", "calculate_EMA", "calculate_RSI", "calculate_MACD", "plot_stock_prices"} {
		assert.Contains(t, out, name)
	}
}

func TestAskCommand(t *testing.T) {
	testEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	a := testApp(
		schema.AssistantMessage("", []schema.ToolCall{{
			ID:       "call_1",
			Function: schema.FunctionCall{Name: "get_stock_price", Arguments: `{"ticker":"AMZN"}`},
		}}),
		schema.AssistantMessage("Amazon last closed at 182.5 USD.", nil),
	)
	out, err := execute(a, "ask", "What is the stock price of Amazon?")
	require.NoError(t, err)
	assert.Contains(t, out, "get_stock_price")
	assert.Contains(t, out, "182.5")
}

func TestAskCommandWithoutCredential(t *testing.T) {
	testEnv(t)

	out, err := execute(testApp(), "ask", "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrCredentialMissing))
	assert.Contains(t, out, "No API key is configured")
}

func TestConfigShowHidesSecrets(t *testing.T) {
	testEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-very-secret")

	out, err := execute(testApp(), "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Chat Model:")
	assert.NotContains(t, out, "sk-very-secret")
}

func TestConfigValidate(t *testing.T) {
	testEnv(t)

	_, err := execute(testApp(), "config", "validate")
	assert.True(t, errors.Is(err, config.ErrCredentialMissing))

	t.Setenv("OPENAI_API_KEY", "sk-test")
	out, err := execute(testApp(), "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid.")
}

func TestConfigFileFlag(t *testing.T) {
	dir := testEnv(t)
	path := filepath.Join(dir, "stockpilot.json")

	out, err := execute(testApp(), "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)
}

func TestConfigSetCommand(t *testing.T) {
	dir := testEnv(t)
	path := filepath.Join(dir, "stockpilot.json")

	out, err := execute(testApp(), "--config", path, "config", "set", "chat_model", "gpt-4o")
	require.NoError(t, err)
	assert.Contains(t, out, "Set chat_model in "+path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"chat_model": "gpt-4o"`)

	_, err = execute(testApp(), "--config", path, "config", "set", "rsi_period", "1")
	assert.Error(t, err)

	_, err = execute(testApp(), "config", "set", "chat_model", "gpt-4o")
	assert.ErrorContains(t, err, "--config")
}

func TestApplyConfigKeepsEnvironmentOverrides(t *testing.T) {
	dir := testEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("STOCKPILOT_CHAT_MODEL", "env-model")

	built := 0
	a := testApp(schema.AssistantMessage("ok", nil))
	factory := a.newChatModel
	a.newChatModel = func(ctx context.Context, cfg *config.Config) (model.ToolCallingChatModel, error) {
		built++
		return factory(ctx, cfg)
	}
	a.configPath = filepath.Join(dir, "stockpilot.json")
	require.NoError(t, a.loadConfig())
	var out bytes.Buffer
	a.out = &out

	ctx := context.Background()
	sess, err := a.newSession(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, built)

	next := a.mgr.Get()
	next.ChatModel = "file-model"
	next.SystemPrompt = "Answer in one sentence."
	a.applyConfig(ctx, sess, next)

	assert.Equal(t, "env-model", a.cfg.ChatModel)
	assert.Equal(t, 1, built)
	assert.Equal(t, "Answer in one sentence.", a.cfg.SystemPrompt)
	assert.Contains(t, out.String(), "System prompt updated.")
	assert.NotContains(t, out.String(), "Now using")
}

func TestApplyConfigSwitchesModel(t *testing.T) {
	dir := testEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	a := testApp()
	a.configPath = filepath.Join(dir, "stockpilot.json")
	require.NoError(t, a.loadConfig())
	var out bytes.Buffer
	a.out = &out

	ctx := context.Background()
	sess, err := a.newSession(ctx)
	require.NoError(t, err)

	next := a.mgr.Get()
	next.ChatModel = "gpt-4o"
	a.applyConfig(ctx, sess, next)

	assert.Equal(t, "gpt-4o", a.cfg.ChatModel)
	assert.Contains(t, out.String(), "Now using gpt-4o.")
}

func TestKeepLatestNeverBlocks(t *testing.T) {
	updates := make(chan config.Config, 1)
	send := keepLatest(updates)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, m := range []string{"a", "b", "c"} {
			send(config.Config{ChatModel: m})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("keepLatest blocked")
	}
	assert.Equal(t, "c", (<-updates).ChatModel)
	assert.Len(t, updates, 0)
}

func TestHandleLine(t *testing.T) {
	testEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	a := testApp(
		schema.AssistantMessage("Hi there.", nil),
		schema.AssistantMessage("", []schema.ToolCall{{
			ID:       "call_1",
			Function: schema.FunctionCall{Name: "get_dividends", Arguments: `{}`},
		}}),
	)
	require.NoError(t, a.loadConfig())
	var out bytes.Buffer
	a.out = &out

	ctx := context.Background()
	sess, err := a.newSession(ctx)
	require.NoError(t, err)

	assert.Equal(t, actionContinue, handleLine(ctx, a, sess, "hello"))
	assert.Contains(t, out.String(), "Hi there.")

	assert.Equal(t, actionContinue, handleLine(ctx, a, sess, "dividends?"))
	assert.Contains(t, out.String(), "does not exist")
	assert.Len(t, sess.History(), 2)

	out.Reset()
	handleLine(ctx, a, sess, "/history")
	assert.Contains(t, out.String(), "Hi there.")

	handleLine(ctx, a, sess, "/reset")
	assert.Empty(t, sess.History())

	assert.Equal(t, actionQuit, handleLine(ctx, a, sess, "EXIT"))
}

func TestPrintReplyImage(t *testing.T) {
	var out bytes.Buffer
	printReply(&out, &assistant.Reply{ImagePath: "data/stock.png", Tool: "plot_stock_prices"})
	assert.Contains(t, out.String(), "Chart saved to data/stock.png")
}
