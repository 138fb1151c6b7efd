// This file defines the configuration structure for the application.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all settings for the management UI. It maps directly to the
// structure of config.yml.
type Config struct {
	Port    int `mapstructure:"port"`
	Backend struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"backend"`
	Queue struct {
		PollInterval int `mapstructure:"poll_interval"` // seconds
	} `mapstructure:"queue"`
	Download struct {
		Destination string `mapstructure:"destination"` // empty: backend default
	} `mapstructure:"download"`
}

// Load reads configuration from a file named "config.yml" in the current
// directory and unmarshals it into a Config struct. Environment variables
// with a BOOKDL_ prefix override file values, e.g. BOOKDL_BACKEND_URL
// overrides `backend.url`.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("BOOKDL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("port", 8105)
	viper.SetDefault("backend.url", "http://localhost:8000")
	viper.SetDefault("queue.poll_interval", 5)
	viper.SetDefault("download.destination", "")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; use defaults and environment overrides.
		} else {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
