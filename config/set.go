package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// fieldSetters maps a JSON key of the config file to a parser for it.
// Secrets have no entry: they only come from the environment or the key file.
var fieldSetters = map[string]func(c *Config, value string) error{
	"data_dir":             func(c *Config, v string) error { c.DataDir = v; return nil },
	"chart_path":           func(c *Config, v string) error { c.ChartPath = v; return nil },
	"llm_provider":         func(c *Config, v string) error { c.LLMProvider = strings.ToLower(v); return nil },
	"chat_model":           func(c *Config, v string) error { c.ChatModel = v; return nil },
	"backend_url":          func(c *Config, v string) error { c.BackendURL = v; return nil },
	"api_key_file":         func(c *Config, v string) error { c.APIKeyFile = v; return nil },
	"system_prompt":        func(c *Config, v string) error { c.SystemPrompt = v; return nil },
	"market_data_provider": func(c *Config, v string) error { c.MarketDataProvider = strings.ToLower(v); return nil },
	"log_level":            func(c *Config, v string) error { c.LogLevel = v; return nil },
	"model_timeout":        durationSetter(func(c *Config) *time.Duration { return &c.ModelTimeout }),
	"market_data_timeout":  durationSetter(func(c *Config) *time.Duration { return &c.MarketDataTimeout }),
	"rsi_period": func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("rsi_period: %q is not an integer", v)
		}
		c.RSIPeriod = n
		return nil
	},
	"debug": func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("debug: %q is not a boolean", v)
		}
		c.Debug = b
		return nil
	},
}

func durationSetter(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%q is not a duration (e.g. 30s)", v)
		}
		*field(c) = d
		return nil
	}
}

// Set assigns one field by its config-file key. The result is not validated.
func (c *Config) Set(key, value string) error {
	setter, ok := fieldSetters[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return fmt.Errorf("unknown config key %q (settable: %s)", key, strings.Join(SettableKeys(), ", "))
	}
	return setter(c, strings.TrimSpace(value))
}

// SettableKeys lists the keys accepted by Set, sorted.
func SettableKeys() []string {
	keys := make([]string, 0, len(fieldSetters))
	for k := range fieldSetters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
