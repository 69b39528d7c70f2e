package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	DB        DBConfig        `mapstructure:"db"`
	AI        AIConfig        `mapstructure:"ai"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Cleanup   CleanupConfig   `mapstructure:"cleanup"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

var configFile = "./configs/config.yaml"

// Get loads the configuration or exits. CONFIG_PATH overrides the file location.
func Get() *Config {

	file := configFile
	if value, ok := os.LookupEnv("CONFIG_PATH"); ok && value != "" {
		file = value
	}

	config, err := Load(file)
	if err != nil {
		log.Fatal(err)
	}

	return config
}

func Load(file string) (*Config, error) {

	v := viper.New()
	v.SetConfigFile(file)
	v.AutomaticEnv()
	setDefaults(v)

	if err := bindEnvironmentVariables(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", file, err)
	}

	config := Config{}
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.log_level", LevelInfo)
	v.SetDefault("logger.app_name", "job-finder")
	v.SetDefault("logger.output_file", "./logs/errors.log")

	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.max_tokens", 1024)
	v.SetDefault("ai.temperature", 0.2)
	v.SetDefault("ai.max_requests_per_minute", 15)
	v.SetDefault("ai.max_requests_per_day", 1500)

	v.SetDefault("queue.batch_size", 10)
	v.SetDefault("queue.poll_interval", 5*time.Second)
	v.SetDefault("queue.dedup_ttl", 300*time.Second)
	v.SetDefault("queue.settings_ttl", time.Minute)
	v.SetDefault("queue.claim_lease", 10*time.Minute)

	v.SetDefault("scheduler.cron", "0 * * * *")
	v.SetDefault("scheduler.max_sources_per_pass", 20)

	v.SetDefault("cleanup.cron", "0 3 * * *")
	v.SetDefault("cleanup.retention_days", 14)

	v.SetDefault("scraper.timeout", 30*time.Second)
	v.SetDefault("scraper.max_requests_per_second", 2)
	v.SetDefault("scraper.hh_max_requests_per_second", 5)
	v.SetDefault("scraper.hh_max_vacancies", 500)

	v.SetDefault("metrics.address", ":9091")
}

type section interface {
	bindEnvironmentVariables(v *viper.Viper) error
}

func bindEnvironmentVariables(v *viper.Viper) error {
	var errs []error

	sections := map[string]section{
		"LoggerConfig":   LoggerConfig{},
		"DBConfig":       DBConfig{},
		"AIConfig":       AIConfig{},
		"TelegramConfig": TelegramConfig{},
		"QueueConfig":    QueueConfig{},
	}
	for name, s := range sections {
		if err := s.bindEnvironmentVariables(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config Config) validate() error {
	var errs []error

	if err := validator.New().Struct(config); err != nil {
		errs = append(errs, err)
	}

	if err := config.Logger.validate(); err != nil {
		errs = append(errs, fmt.Errorf("LoggerConfig: %w", err))
	}

	if err := config.Telegram.validate(); err != nil {
		errs = append(errs, fmt.Errorf("TelegramConfig: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}
