package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/crossingdelta/timeline/internal/client"
)

// Config is the client configuration read from ~/.timeline/config.yaml
type Config struct {
	Server      string `mapstructure:"server"`
	SessionFile string `mapstructure:"session_file"`
}

var errNotLoggedIn = errors.New("not logged in, run `timeline login` first")

// Dir returns the per-user state directory
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".timeline"
	}
	return filepath.Join(home, ".timeline")
}

// DefaultConfig returns defaults for a local server
func DefaultConfig() *Config {
	return &Config{
		Server:      "http://localhost:3001",
		SessionFile: filepath.Join(Dir(), "session.json"),
	}
}

// LoadConfig reads the config file when present. TIMELINE_SERVER and
// TIMELINE_SESSION_FILE override it.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetDefault("server", cfg.Server)
	v.SetDefault("session_file", cfg.SessionFile)
	v.SetEnvPrefix("TIMELINE")
	v.AutomaticEnv()

	if path == "" {
		path = filepath.Join(Dir(), "config.yaml")
	}
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// SaveSession writes the session readable by the owner only
func SaveSession(path string, s client.Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	return os.Chmod(path, 0o600)
}

// LoadSession reads a saved session
func LoadSession(path string) (client.Session, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return client.Session{}, errNotLoggedIn
	}
	if err != nil {
		return client.Session{}, fmt.Errorf("read session: %w", err)
	}
	var s client.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return client.Session{}, fmt.Errorf("decode session: %w", err)
	}
	if !s.Valid() {
		return client.Session{}, errNotLoggedIn
	}
	return s, nil
}

// ClearSession removes the saved session. A missing file is not an error.
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
