package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseDSN           string `env:"DATABASE_DSN,required=true"`
	RedisURL              string `env:"REDIS_URL,required=true"`
	GatewayURL            string `env:"GATEWAY_URL,required=true"`
	GatewayToken          string `env:"GATEWAY_TOKEN"`
	RabbitMQURL           string `env:"RABBITMQ_URL"`
	RateLimitPerSec       int    `env:"RATE_LIMIT_PER_SEC,default=20"`
	DispatchConcurrency   int    `env:"DISPATCH_CONCURRENCY,default=4"`
	SendTimeoutSeconds    int    `env:"SEND_TIMEOUT_SECONDS,default=10"`
	LimiterWaitSeconds    int    `env:"RATE_LIMIT_WAIT_SECONDS,default=30"`
	PublishTimeoutSeconds int    `env:"PUBLISH_TIMEOUT_SECONDS,default=10"`
	DefaultThresholdDays  int    `env:"DEFAULT_THRESHOLD_DAYS,default=7"`
	ReminderTimezone      string `env:"REMINDER_TIMEZONE,default=UTC"`
	ReminderCron          string `env:"REMINDER_CRON,default=0 9 * * *"`
	ReminderCronEnabled   bool   `env:"REMINDER_CRON_ENABLED,default=false"`
	DemoMode              bool   `env:"DEMO_MODE,default=false"`
	APIPort               int    `env:"API_PORT,default=8080"`
	LogLevel              string `env:"LOG_LEVEL,default=info"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; it never overrides variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DefaultThresholdDays < 0 {
		return fmt.Errorf("DEFAULT_THRESHOLD_DAYS must be >= 0, got %d", c.DefaultThresholdDays)
	}
	if _, err := time.LoadLocation(c.ReminderTimezone); err != nil {
		return fmt.Errorf("invalid REMINDER_TIMEZONE %q: %w", c.ReminderTimezone, err)
	}
	return nil
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReminderTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) SendTimeout() time.Duration {
	if c.SendTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

func (c *Config) LimiterWait() time.Duration {
	if c.LimiterWaitSeconds <= 0 {
		return 0
	}
	return time.Duration(c.LimiterWaitSeconds) * time.Second
}

func (c *Config) PublishTimeout() time.Duration {
	if c.PublishTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.PublishTimeoutSeconds) * time.Second
}
