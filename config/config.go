package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrCredentialMissing is returned when no LLM API key can be found.
var ErrCredentialMissing = errors.New("llm api key is not configured")

type Config struct {
	DataDir   string `json:"data_dir"`
	ChartPath string `json:"chart_path"`

	LLMProvider  string        `json:"llm_provider"`
	ChatModel    string        `json:"chat_model"`
	BackendURL   string        `json:"backend_url"`
	APIKey       string        `json:"-"`
	APIKeyFile   string        `json:"api_key_file"`
	ModelTimeout time.Duration `json:"model_timeout"`
	SystemPrompt string        `json:"system_prompt"`

	MarketDataProvider string        `json:"market_data_provider"`
	MarketDataTimeout  time.Duration `json:"market_data_timeout"`
	RSIPeriod          int           `json:"rsi_period"`

	// Market data API keys
	FinnhubAPIKey string `json:"-"`

	// Longport API Configuration
	LongportAppKey      string `json:"-"`
	LongportAppSecret   string `json:"-"`
	LongportAccessToken string `json:"-"`

	Debug    bool   `json:"debug"`
	LogLevel string `json:"log_level"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()

	cfg := DefaultConfigWithRoot(currentDir)
	cfg.LoadEnv()
	return cfg
}

// LoadEnv loads a .env file when present and applies environment overrides.
func (c *Config) LoadEnv() {
	_ = godotenv.Load()
	c.loadFromEnv()
}

// DefaultConfigWithRoot returns the built-in defaults with every path rooted at dir.
func DefaultConfigWithRoot(dir string) *Config {
	dataDir := filepath.Join(dir, "data")
	return &Config{
		DataDir:   dataDir,
		ChartPath: filepath.Join(dataDir, "stock.png"),

		LLMProvider:  "openai",
		ChatModel:    "gpt-4o-mini",
		BackendURL:   "",
		APIKeyFile:   filepath.Join(dir, "API_KEY"),
		ModelTimeout: 60 * time.Second,

		MarketDataProvider: "yahoo",
		MarketDataTimeout:  15 * time.Second,
		RSIPeriod:          14,

		Debug:    false,
		LogLevel: "info",
	}
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("STOCKPILOT_DATA_DIR"); val != "" {
		c.DataDir = val
		c.ChartPath = filepath.Join(val, "stock.png")
	}
	if val := os.Getenv("STOCKPILOT_CHART_PATH"); val != "" {
		c.ChartPath = val
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = val
	}
	if val := os.Getenv("STOCKPILOT_CHAT_MODEL"); val != "" {
		c.ChatModel = val
	}
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.BackendURL = val
	}
	if val := os.Getenv("STOCKPILOT_API_KEY_FILE"); val != "" {
		c.APIKeyFile = val
	}
	if val := os.Getenv("STOCKPILOT_SYSTEM_PROMPT"); val != "" {
		c.SystemPrompt = val
	}
	if val := os.Getenv("STOCKPILOT_MODEL_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.ModelTimeout = d
		}
	}

	if val := os.Getenv("MARKET_DATA_PROVIDER"); val != "" {
		c.MarketDataProvider = val
	}
	if val := os.Getenv("STOCKPILOT_MARKET_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.MarketDataTimeout = d
		}
	}
	if val := os.Getenv("STOCKPILOT_RSI_PERIOD"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.RSIPeriod = v
		}
	}

	switch strings.ToLower(c.LLMProvider) {
	case "deepseek":
		if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
			c.APIKey = val
		}
	default:
		if val := os.Getenv("OPENAI_API_KEY"); val != "" {
			c.APIKey = val
		}
	}

	if val := os.Getenv("STOCKPILOT_FINNHUB_API_KEY"); val != "" {
		c.FinnhubAPIKey = val
	}
	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("STOCKPILOT_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}
	if val := os.Getenv("STOCKPILOT_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
}

// ResolveAPIKey fills APIKey from the key file when the environment did not
// provide one. The file holds the raw key, surrounding whitespace is ignored.
func (c *Config) ResolveAPIKey() error {
	if strings.TrimSpace(c.APIKey) != "" {
		return nil
	}
	path := strings.TrimSpace(c.APIKeyFile)
	if path == "" {
		return ErrCredentialMissing
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: no key in environment and %s does not exist", ErrCredentialMissing, path)
		}
		return fmt.Errorf("read api key file %s: %w", path, err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return fmt.Errorf("%w: %s is empty", ErrCredentialMissing, path)
	}
	c.APIKey = key
	return nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.LLMProvider) {
	case "openai", "deepseek":
	default:
		return fmt.Errorf("unsupported llm provider %q", c.LLMProvider)
	}
	if strings.TrimSpace(c.ChatModel) == "" {
		return errors.New("chat model is required")
	}
	switch strings.ToLower(c.MarketDataProvider) {
	case "yahoo", "finnhub", "longport":
	default:
		return fmt.Errorf("unsupported market data provider %q", c.MarketDataProvider)
	}
	if c.ModelTimeout < 0 || c.MarketDataTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.RSIPeriod < 2 {
		return fmt.Errorf("rsi period must be at least 2, got %d", c.RSIPeriod)
	}
	if strings.TrimSpace(c.ChartPath) == "" {
		return errors.New("chart path is required")
	}
	return nil
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, filepath.Dir(c.ChartPath)}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}

// LogPath is where the rotating log file lives.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "logs", "stockpilot.log")
}
