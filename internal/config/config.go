// Package config assembles types.Config from defaults, an optional YAML file, the
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"audit-automate/internal/types"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. AUDIT_MAX_RETRIES
const EnvPrefix = "AUDIT"

// DefaultFile is the config file looked up in the working directory when --config is not given
const DefaultFile = ".audit.yaml"

// Keys lists every configurable key
var Keys = []string{
	"user_agent", "headless", "window_width", "window_height", "page_timeout",
	"max_retries", "initial_delay", "retry_delay_min", "retry_delay_max",
	"link_delay_min", "link_delay_max", "retry_growth", "critical_growth",
	"locator_attempts", "locator_scroll_increment", "stitch_overlap", "crop_fraction",
	"provider", "model", "api_key", "base_url", "prompt_dir", "max_tokens",
	"request_delay", "request_timeout", "csv_file", "report_folder",
}

var apiKeyEnv = []string{"AUDIT_API_KEY", "GEMINI_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY"}

// LoadDotEnv loads a .env file from the working directory if one exists
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// NewViper returns a viper instance wired to the environment and the config file at path
// (or DefaultFile in the working directory when path is empty). A missing default file is
// not an error.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	for _, key := range Keys {
		if key == "api_key" {
			continue
		}
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	if err := v.BindEnv(append([]string{"api_key"}, apiKeyEnv...)...); err != nil {
		return nil, fmt.Errorf("failed to bind api_key: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(strings.TrimSuffix(DefaultFile, ".yaml"))
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// Load decodes every key set in v over the defaults and validates the result
func Load(v *viper.Viper) (*types.Config, error) {
	cfg := types.DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the config's struct constraints
func Validate(cfg *types.Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (%s)", fe.Namespace(), fe.Tag(), fe.Param()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
