// Package config loads and validates service configuration.
package config

import (
	"fmt"
	"strings"
)

// ValidateCore ensures critical configuration is present.
func (c *Config) ValidateCore() error {
	var missing []string

	if strings.TrimSpace(c.Database.URL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if strings.TrimSpace(c.Redis.URL) == "" {
		missing = append(missing, "REDIS_URL")
	}
	if strings.TrimSpace(c.Server.Port) == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" || c.JWT.Secret == "change-this-secret" {
		missing = append(missing, "JWT_SECRET")
	}
	if strings.TrimSpace(c.Admin.PasswordHash) == "" {
		missing = append(missing, "ADMIN_PASSWORD_HASH")
	}
	if strings.TrimSpace(c.Telegram.BotToken) == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if strings.TrimSpace(c.Telegram.BaseWebhookURL) == "" {
		missing = append(missing, "BASE_WEBHOOK_URL")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}

// WebhookURL returns the full webhook registration URL derived from the
// public base URL, the fixed path and the optional secret suffix.
func (c *TelegramConfig) WebhookURL() string {
	base := strings.TrimRight(c.BaseWebhookURL, "/")
	path := c.WebhookPath
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if c.WebhookSecret != "" {
		return base + path + "/" + c.WebhookSecret
	}
	return base + path
}
