package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Manager owns the on-disk JSON config file. Secrets are never written to it;
// they come from the environment or the key file.
type Manager struct {
	path     string
	debounce time.Duration

	mu       sync.RWMutex
	cfg      Config
	logger   zerolog.Logger
	watching bool
	onChange func(Config)
}

type ManagerOption func(*Manager)

// WithConfigPath sets the config file location. The default is
// <user config dir>/StockPilot/config.json.
func WithConfigPath(path string) ManagerOption {
	return func(m *Manager) {
		if path != "" {
			m.path = path
		}
	}
}

// WithDebounce sets how long the file must stay quiet before a reload.
func WithDebounce(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.debounce = d
		}
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager loads the config file, writing the defaults first when it does
// not exist yet.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	m := &Manager{
		debounce: 300 * time.Millisecond,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.path == "" {
		path, err := defaultConfigPath()
		if err != nil {
			return nil, err
		}
		m.path = path
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	cfg, err := readOrInit(m.path)
	if err != nil {
		return nil, err
	}
	m.cfg = cfg
	return m, nil
}

// SetLogger replaces the logger used for watch and reload diagnostics.
func (m *Manager) SetLogger(logger zerolog.Logger) {
	m.mu.Lock()
	m.logger = logger
	m.mu.Unlock()
}

func (m *Manager) log() zerolog.Logger {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.logger
}

// Get returns the file's config without environment overrides.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Path() string {
	return m.path
}

// Set changes one key, validates the result and writes it to disk.
func (m *Manager) Set(key, value string) (Config, error) {
	next := m.Get()
	if err := next.Set(key, value); err != nil {
		return Config{}, err
	}
	if err := m.Update(next); err != nil {
		return Config{}, err
	}
	return next, nil
}

// Update validates next and persists it. Watch callbacks are not invoked for
// the manager's own writes.
func (m *Manager) Update(next Config) error {
	if err := next.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if reflect.DeepEqual(m.cfg, next) {
		return nil
	}
	if err := writeConfigFile(m.path, next); err != nil {
		return err
	}
	m.cfg = next
	m.logger.Info().Str("path", m.path).Msg("config saved")
	return nil
}

// Watch reloads the file on external edits and hands each changed, valid
// value to onChange. Calls to onChange never overlap. The watcher stops when
// ctx is done; a second Watch only replaces the callback.
func (m *Manager) Watch(ctx context.Context, onChange func(Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onChange = onChange
	if m.watching {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	// The directory is watched so atomic renames onto the file are seen.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	m.watching = true

	go m.watch(ctx, watcher)
	return nil
}

func (m *Manager) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	quiet := time.NewTimer(m.debounce)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if isConfigEvent(evt, m.path) {
				quiet.Reset(m.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.log().Warn().Err(err).Msg("config watcher error")
		case <-quiet.C:
			m.reload()
		}
	}
}

func isConfigEvent(evt fsnotify.Event, configPath string) bool {
	if filepath.Clean(evt.Name) != filepath.Clean(configPath) {
		return false
	}
	return evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// reload keeps the current settings when the file is gone or invalid.
func (m *Manager) reload() {
	logger := m.log().With().Str("path", m.path).Logger()

	cfg, err := readConfigFile(m.path)
	if err != nil {
		logger.Warn().Err(err).Msg("config reload failed, keeping current settings")
		return
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn().Err(err).Msg("ignoring invalid config edit")
		return
	}

	m.mu.Lock()
	if reflect.DeepEqual(m.cfg, cfg) {
		m.mu.Unlock()
		return
	}
	m.cfg = cfg
	cb := m.onChange
	m.mu.Unlock()

	logger.Info().Msg("config reloaded")
	if cb != nil {
		cb(cfg)
	}
}

func readOrInit(path string) (Config, error) {
	cfg, err := readConfigFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = *DefaultConfigWithRoot(filepath.Dir(path))
		if err := writeConfigFile(path, cfg); err != nil {
			return Config{}, fmt.Errorf("write initial config: %w", err)
		}
		return cfg, nil
	case err != nil:
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// readConfigFile starts from the defaults so fields missing in the file keep
// their built-in values.
func readConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := *DefaultConfigWithRoot(filepath.Dir(path))
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

func defaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		if dir, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, "StockPilot", "config.json"), nil
}

// writeConfigFile replaces path atomically through a temp file in the same dir.
func writeConfigFile(path string, cfg Config) (err error) {
	data, err := json.MarshalIndent(&cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.json")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(append(data, '\n')); err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
