package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ============================================================================
// Config types
// ============================================================================

// Config represents the CLI configuration stored in ~/.auctionhouse/config.toml.
type Config struct {
	Default  ConfigDefault  `toml:"default"`
	Auth     ConfigAuth     `toml:"auth"`
	Realtime ConfigRealtime `toml:"realtime"`
}

// ConfigDefault holds endpoint settings.
type ConfigDefault struct {
	BaseURL string `toml:"base_url"`
	WSURL   string `toml:"ws_url"`
}

// ConfigAuth holds the session saved by login.
type ConfigAuth struct {
	Token    string `toml:"token"`
	UserID   string `toml:"user_id"`
	Username string `toml:"username"`
	Email    string `toml:"email"`
}

// ConfigRealtime tunes the watch command's reconnect behaviour. Zero means default.
type ConfigRealtime struct {
	MaxReconnectAttempts int `toml:"max_reconnect_attempts"`
	ReconnectDelayMS     int `toml:"reconnect_delay_ms"`
}

// ============================================================================
// Config helpers
// ============================================================================

// configDir returns $AUCTIONHOUSE_HOME or ~/.auctionhouse, creating it if needed.
func configDir() (string, error) {
	dir := os.Getenv("AUCTIONHOUSE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".auctionhouse")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("cannot create config directory: %w", err)
	}
	return dir, nil
}

// configPath returns the full path to the config file.
func configPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// loadConfig reads and parses the config file.
// If the file does not exist, it returns a zero-value Config.
func loadConfig() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config: %w", err)
	}
	return &cfg, nil
}

// saveConfig writes the config struct back to disk as TOML.
func saveConfig(cfg *Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("cannot write config: %w", err)
	}
	return nil
}

// setConfigValue sets a config field using dot notation (e.g. "default.base_url").
func setConfigValue(cfg *Config, key, value string) error {
	parts := strings.SplitN(key, ".", 2)
	if len(parts) != 2 {
		return fmt.Errorf("key must use dot notation: section.field (e.g. default.base_url)")
	}
	section, field := parts[0], parts[1]

	switch section {
	case "default":
		switch field {
		case "base_url":
			cfg.Default.BaseURL = value
		case "ws_url":
			cfg.Default.WSURL = value
		default:
			return fmt.Errorf("unknown field %q in section [default]", field)
		}
	case "auth":
		switch field {
		case "token":
			cfg.Auth.Token = value
		case "user_id":
			cfg.Auth.UserID = value
		case "username":
			cfg.Auth.Username = value
		case "email":
			cfg.Auth.Email = value
		default:
			return fmt.Errorf("unknown field %q in section [auth]", field)
		}
	case "realtime":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer", key)
		}
		switch field {
		case "max_reconnect_attempts":
			cfg.Realtime.MaxReconnectAttempts = n
		case "reconnect_delay_ms":
			if n < 0 {
				return fmt.Errorf("%s must not be negative", key)
			}
			cfg.Realtime.ReconnectDelayMS = n
		default:
			return fmt.Errorf("unknown field %q in section [realtime]", field)
		}
	default:
		return fmt.Errorf("unknown config section %q (valid: default, auth, realtime)", section)
	}
	return nil
}

// ============================================================================
// Root command
// ============================================================================

var verbose bool

var rootCmd = &cobra.Command{
	Use:          "auctionhouse",
	Short:        "Auction marketplace CLI",
	Long:         "Command-line interface for the auction marketplace.\nLog in, browse and create auctions, place bids and watch live events.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
}

// newLogger returns a development logger with --verbose, otherwise a production
// logger that only reports warnings and errors.
func newLogger() *zap.Logger {
	if verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
