package main

import (
	"context"
	"fmt"
	"time"

	"github.com/MansiChugh28/auctionhouse"
	"go.uber.org/zap"
)

const requestTimeout = 30 * time.Second

// getClient creates an API client from the config. With requireAuth the saved token
// must be present.
func getClient(cfg *Config, logger *zap.Logger, requireAuth bool) (*auctionhouse.Client, error) {
	if requireAuth && cfg.Auth.Token == "" {
		return nil, fmt.Errorf("not logged in; run 'auctionhouse login' first")
	}

	opts := []auctionhouse.ClientOption{auctionhouse.WithLogger(logger)}
	if cfg.Default.BaseURL != "" {
		opts = append(opts, auctionhouse.WithBaseURL(cfg.Default.BaseURL))
	}
	return auctionhouse.NewClient(cfg.Auth.Token, opts...), nil
}

// loadClient loads the config and returns an authenticated client.
func loadClient() (*auctionhouse.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return getClient(cfg, newLogger(), true)
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), requestTimeout)
}

// apiError turns an API failure into a CLI error, pointing at login for expired sessions.
func apiError(what string, err error) error {
	if auctionhouse.IsUnauthorized(err) {
		return fmt.Errorf("%s: session expired or invalid; run 'auctionhouse login' again", what)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// streamURL returns the configured realtime URL, or the one derived from the REST base.
func streamURL(cfg *Config, client *auctionhouse.Client) string {
	if cfg.Default.WSURL != "" {
		return cfg.Default.WSURL
	}
	return client.RealtimeURL()
}

// configCredentials reads the token from the config file on every call, so a
// 'login' in another terminal is picked up by the next reconnect.
type configCredentials struct {
	log *zap.Logger
}

func (c configCredentials) Token() string {
	cfg, err := loadConfig()
	if err != nil {
		c.log.Warn("cannot read token from config", zap.Error(err))
		return ""
	}
	return cfg.Auth.Token
}
