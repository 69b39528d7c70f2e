package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// TelegramConfig enables match notifications when Token is set.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

func (config TelegramConfig) Enabled() bool {
	return config.Token != ""
}

func (config TelegramConfig) validate() error {
	if config.Enabled() && config.ChatID == 0 {
		return fmt.Errorf("missing variable: chat_id is required with a token")
	}
	return nil
}

func (config TelegramConfig) bindEnvironmentVariables(v *viper.Viper) error {
	if err := v.BindEnv("telegram.token", "TG_TOKEN"); err != nil {
		return err
	}
	return v.BindEnv("telegram.chat_id", "TG_CHAT_ID")
}
