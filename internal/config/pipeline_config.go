package config

import (
	"time"

	"github.com/spf13/viper"
)

type QueueConfig struct {
	BatchSize    int           `mapstructure:"batch_size" validate:"gte=1,lte=500"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	DedupTTL     time.Duration `mapstructure:"dedup_ttl" validate:"gt=0"`
	SettingsTTL  time.Duration `mapstructure:"settings_ttl" validate:"gt=0"`
	ClaimLease   time.Duration `mapstructure:"claim_lease" validate:"gt=0"`
}

func (config QueueConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return v.BindEnv("queue.poll_interval", "QUEUE_POLL_INTERVAL")
}

type SchedulerConfig struct {
	Cron              string `mapstructure:"cron" validate:"required"`
	MaxSourcesPerPass int    `mapstructure:"max_sources_per_pass" validate:"gte=1"`
}

type CleanupConfig struct {
	Cron          string `mapstructure:"cron" validate:"required"`
	RetentionDays int    `mapstructure:"retention_days" validate:"gte=1"`
}

type ScraperConfig struct {
	Timeout                time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxRequestsPerSecond   float64       `mapstructure:"max_requests_per_second" validate:"gt=0"`
	HhMaxRequestsPerSecond float64       `mapstructure:"hh_max_requests_per_second" validate:"gt=0"`
	HhMaxVacancies         int           `mapstructure:"hh_max_vacancies" validate:"gte=1"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}
