// internal/config/config.go
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	ProviderGemini     = "gemini"
	ProviderCompatible = "openai-compatible"
)

// AIConfig is the opaque capability descriptor handed to the
// generation pipeline. It is consumed, never owned.
type AIConfig struct {
	Provider  string `yaml:"provider"`
	ModelName string `yaml:"model_name"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	UseProxy  bool   `yaml:"use_proxy"`
}

type Config struct {
	AI             AIConfig `yaml:"ai"`
	TargetLanguage string   `yaml:"target_language"`
	StorageDir     string   `yaml:"storage_dir"`
	Extraction     struct {
		MinSide      int     `yaml:"min_side"`
		MinArea      int     `yaml:"min_area"`
		MinAspect    float64 `yaml:"min_aspect"`
		MaxAspect    float64 `yaml:"max_aspect"`
		SlideMinSide int     `yaml:"slide_min_side"`
		MaxDimension int     `yaml:"max_dimension"`
	} `yaml:"extraction"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a config usable without a file on disk.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = ProviderGemini
	}
	if cfg.AI.ModelName == "" {
		cfg.AI.ModelName = "gemini-2.0-flash"
	}
	if cfg.TargetLanguage == "" {
		cfg.TargetLanguage = "English"
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = "./decks"
	}
	if cfg.Extraction.MinSide == 0 {
		cfg.Extraction.MinSide = 20
	}
	if cfg.Extraction.MinArea == 0 {
		cfg.Extraction.MinArea = 200
	}
	if cfg.Extraction.MinAspect == 0 {
		cfg.Extraction.MinAspect = 0.02
	}
	if cfg.Extraction.MaxAspect == 0 {
		cfg.Extraction.MaxAspect = 50
	}
	if cfg.Extraction.SlideMinSide == 0 {
		cfg.Extraction.SlideMinSide = 15
	}
	if cfg.Extraction.MaxDimension == 0 {
		cfg.Extraction.MaxDimension = 1024
	}
}
