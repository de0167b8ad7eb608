// Package secrets loads sensitive configuration values from HashiCorp Vault
// when enabled, falling back to the plain config otherwise.
package secrets

import (
	"context"
	"fmt"

	"github.com/hashicorp/vault/api"
	"github.com/rs/zerolog"

	"dex-analytics-bot/config"
)

// Client wraps the HashiCorp Vault client for KV v2 reads.
type Client struct {
	client *api.Client
	config config.VaultConfig
	logger zerolog.Logger
}

// NewClient creates a new Vault client. When Vault is disabled the returned
// client is a no-op and ApplySecrets leaves the config untouched.
func NewClient(cfg config.VaultConfig, logger zerolog.Logger) (*Client, error) {
	c := &Client{
		config: cfg,
		logger: logger.With().Str("component", "secrets").Logger(),
	}
	if !cfg.Enabled {
		return c, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)
	c.client = client

	return c, nil
}

// readKV reads a KV v2 secret and returns its data map.
func (c *Client) readKV(ctx context.Context, path string) (map[string]interface{}, error) {
	secret, err := c.client.Logical().ReadWithContext(ctx, fmt.Sprintf("%s/data/%s", c.config.MountPath, path))
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected secret format at %s", path)
	}
	return data, nil
}

// ApplySecrets overwrites the database password and DEX API key from Vault
// when the corresponding secrets exist. Missing secrets are not an error.
func (c *Client) ApplySecrets(ctx context.Context, cfg *config.Config) error {
	if !c.config.Enabled {
		return nil
	}

	if data, err := c.readKV(ctx, "database"); err != nil {
		return err
	} else if data != nil {
		if password, ok := data["password"].(string); ok && password != "" {
			cfg.DatabaseConfig.Password = password
			c.logger.Info().Msg("database password loaded from vault")
		}
	}

	if data, err := c.readKV(ctx, "dex"); err != nil {
		return err
	} else if data != nil {
		if apiKey, ok := data["api_key"].(string); ok && apiKey != "" {
			cfg.DexConfig.APIKey = apiKey
			c.logger.Info().Msg("dex API key loaded from vault")
		}
	}

	return nil
}
