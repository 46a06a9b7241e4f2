// Package config loads the service configuration from a YAML or JSON file
// with FR_ environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/text/language"

	"github.com/kilianp07/freightrec/core/arbiter"
	"github.com/kilianp07/freightrec/core/factory"
	"github.com/kilianp07/freightrec/core/metrics"
	"github.com/kilianp07/freightrec/core/predictionlog"
	"github.com/kilianp07/freightrec/infra/mqtt"
)

// EnvPrefix prefixes environment overrides. Nested keys are separated by a
// double underscore, e.g. FR_MQTT__BROKER.
const EnvPrefix = "FR_"

type Config struct {
	Dataset       factory.ModuleConfig `json:"dataset"`
	Model         ModelConfig          `json:"model"`
	Engine        arbiter.Config       `json:"engine"`
	Explain       ExplainConfig        `json:"explain"`
	PredictionLog predictionlog.Config `json:"prediction_log"`
	Metrics       metrics.Config       `json:"metrics"`
	HTTP          HTTPConfig           `json:"http"`
	MQTT          mqtt.Config          `json:"mqtt"`
	Sentry        SentryConfig         `json:"sentry"`
	LogLevel      string               `json:"log_level"`
}

// ModelConfig locates the model artifacts.
type ModelConfig struct {
	Dir string `json:"dir"`
	// Features overrides the feature order used when fitting.
	Features []string `json:"features"`
}

// ExplainConfig controls how amounts are rendered in explanations.
type ExplainConfig struct {
	CurrencySymbol string `json:"currency_symbol"`
	Language       string `json:"language"`
}

// Tag returns the parsed language.
func (c ExplainConfig) Tag() language.Tag {
	tag, err := language.Parse(c.Language)
	if err != nil {
		return language.English
	}
	return tag
}

// HTTPConfig configures the JSON API.
type HTTPConfig struct {
	Address string `json:"address"`
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	if c.Model.Dir == "" {
		c.Model.Dir = "models"
	}
	c.Engine.SetDefaults()
	if c.Explain.CurrencySymbol == "" {
		c.Explain.CurrencySymbol = "R$"
	}
	if c.Explain.Language == "" {
		c.Explain.Language = "en"
	}
	c.PredictionLog.SetDefaults()
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	c.MQTT.SetDefaults()
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if c.Dataset.Type == "" {
		return fmt.Errorf("dataset.type is required")
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if _, err := language.Parse(c.Explain.Language); err != nil {
		return fmt.Errorf("explain.language: %w", err)
	}
	if err := c.PredictionLog.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	if err := c.Sentry.Validate(); err != nil {
		return err
	}
	return nil
}

// Load reads path, applies FR_ environment overrides, fills defaults and
// validates the result. An empty path loads the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
