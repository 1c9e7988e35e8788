package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"teamflow/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	viper.BindEnv("broker.kafka.group_id", "BROKER_KAFKA_GROUP_ID")
	viper.BindEnv("broker.kafka.task_event_topic", "BROKER_KAFKA_TASK_EVENT_TOPIC")
	viper.BindEnv("broker.kafka.dlq_topic", "BROKER_KAFKA_DLQ_TOPIC")

	viper.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	viper.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	viper.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	viper.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	viper.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	viper.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("engine.email.smtp_host", "ENGINE_EMAIL_SMTP_HOST")
	viper.BindEnv("engine.email.smtp_port", "ENGINE_EMAIL_SMTP_PORT")
	viper.BindEnv("engine.email.username", "ENGINE_EMAIL_USERNAME")
	viper.BindEnv("engine.email.password", "ENGINE_EMAIL_PASSWORD")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyDefaults(cfg *Config) {
	if cfg.Broker.Kafka.TaskEventTopic == "" {
		cfg.Broker.Kafka.TaskEventTopic = constants.DefaultTaskEventTopic
	}
	if cfg.Engine.Scanner.Interval <= 0 {
		cfg.Engine.Scanner.Interval = constants.DefaultScanInterval
	}
	if cfg.Engine.Scanner.WatermarkTTL <= 0 {
		cfg.Engine.Scanner.WatermarkTTL = constants.DefaultWatermarkTTL
	}
	if cfg.Engine.Webhook.Timeout <= 0 {
		cfg.Engine.Webhook.Timeout = constants.DefaultWebhookTimeout
	}
}
