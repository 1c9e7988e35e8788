package config

import (
	"fmt"
)

// ValidateStatic rejects configurations that cannot work at all. Tunables
// with safe defaults are filled in by applyDefaults instead.
func ValidateStatic(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.DBName == "" {
		return fmt.Errorf("database.postgres.dbname is required")
	}

	if cfg.Broker.Type != "" && cfg.Broker.Type != "kafka" {
		return fmt.Errorf("unsupported broker type: %s", cfg.Broker.Type)
	}
	if cfg.Broker.Type == "kafka" && len(cfg.Broker.Kafka.Brokers) == 0 {
		return fmt.Errorf("broker.kafka.brokers is required when broker type is kafka")
	}

	if cfg.Engine.Webhook.Retry.MaxAttempts < 0 {
		return fmt.Errorf("engine.webhook.retry.max_attempts must not be negative")
	}

	if cfg.API.RateLimit.Enabled && cfg.API.RateLimit.RPS <= 0 {
		return fmt.Errorf("api.rate_limit.rps must be positive when rate limiting is enabled")
	}

	return nil
}
