package config

import (
	"github.com/spf13/viper"
)

type AIConfig struct {
	Key                  string  `mapstructure:"key" validate:"required"`
	Model                string  `mapstructure:"model" validate:"required"`
	MaxTokens            int     `mapstructure:"max_tokens" validate:"gte=64"`
	Temperature          float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxRequestsPerMinute float32 `mapstructure:"max_requests_per_minute" validate:"gt=0"`
	MaxRequestsPerDay    float32 `mapstructure:"max_requests_per_day" validate:"gt=0"`
}

func (config AIConfig) bindEnvironmentVariables(v *viper.Viper) error {
	if err := v.BindEnv("ai.key", "AI_KEY"); err != nil {
		return err
	}
	return v.BindEnv("ai.model", "AI_MODEL")
}
