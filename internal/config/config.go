package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dreamic/permission-tracker/internal/domain"
)

type Config struct {
	RedisURL             string `env:"REDIS_URL,required=true"`
	DatabaseDSN          string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL          string `env:"RABBITMQ_URL,required=true"`
	APIPort              int    `env:"API_PORT,default=8080"`
	LogLevel             string `env:"LOG_LEVEL,default=info"`
	RateLimitPerSec      int    `env:"RATE_LIMIT_PER_SEC,default=20"`
	WorkerConcurrency    int    `env:"WORKER_CONCURRENCY,default=4"`
	ReminderIntervalDays int    `env:"REMINDER_INTERVAL_DAYS,default=30"`
	MaxDenials           int    `env:"MAX_DENIALS,default=3"`
	MaxSettingsPrompts   int    `env:"MAX_SETTINGS_PROMPTS,default=2"`
	MinPromptGapHours    int    `env:"MIN_PROMPT_GAP_HOURS,default=24"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// FlowConfig maps the environment knobs onto the tracker's flow policy.
func (c *Config) FlowConfig() domain.NotificationFlowConfig {
	return domain.NotificationFlowConfig{
		MaxDenials:         c.MaxDenials,
		MaxSettingsPrompts: c.MaxSettingsPrompts,
		ReminderInterval:   time.Duration(c.ReminderIntervalDays) * 24 * time.Hour,
		MinPromptGap:       time.Duration(c.MinPromptGapHours) * time.Hour,
	}
}
