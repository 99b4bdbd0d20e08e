package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// APIConfig is the server configuration, env-sourced.
type APIConfig struct {
	Addr          string `env:"NW_API_ADDR" envDefault:":8080"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-3-flash-preview"`
	CatalogPath   string `env:"NW_CATALOG_FILE"`

	// Engine policies. Ruin is "buffer" (balance strictly below
	// -RuinBuffer) or "strict-zero" (balance at or below zero).
	RuinPolicy    string `env:"NW_RUIN_POLICY" envDefault:"buffer"`
	RuinBuffer    int64  `env:"NW_RUIN_BUFFER" envDefault:"20000"`
	ChoiceCount   int    `env:"NW_CHOICE_COUNT" envDefault:"4"`
	MinSelect     int    `env:"NW_MIN_SELECT" envDefault:"1"`
	MaxSelect     int    `env:"NW_MAX_SELECT" envDefault:"1"`
	GivingEnabled bool   `env:"NW_GIVING_ENABLED" envDefault:"false"`
}

// CLIConfig is the game client configuration.
type CLIConfig struct {
	APIBaseURL string `env:"NW_API_URL" envDefault:"http://localhost:8080"`
}

func LoadAPIFromEnv() (APIConfig, error) {
	cfg, err := env.ParseAs[APIConfig]()
	if err != nil {
		return APIConfig{}, fmt.Errorf("parse env: %w", err)
	}
	// Platform-style PORT wins when set.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Addr = port
	}
	switch cfg.RuinPolicy {
	case "buffer", "strict-zero":
	default:
		return APIConfig{}, fmt.Errorf("NW_RUIN_POLICY must be buffer or strict-zero, got %q", cfg.RuinPolicy)
	}
	if cfg.RuinBuffer < 0 {
		return APIConfig{}, fmt.Errorf("NW_RUIN_BUFFER must be >= 0")
	}
	if cfg.ChoiceCount < 4 || cfg.ChoiceCount > 5 {
		return APIConfig{}, fmt.Errorf("NW_CHOICE_COUNT must be 4 or 5")
	}
	if cfg.MinSelect < 1 || cfg.MaxSelect < cfg.MinSelect || cfg.MaxSelect > cfg.ChoiceCount {
		return APIConfig{}, fmt.Errorf("selection policy %d..%d is invalid for %d choices", cfg.MinSelect, cfg.MaxSelect, cfg.ChoiceCount)
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	cfg, err := env.ParseAs[CLIConfig]()
	if err != nil {
		return CLIConfig{APIBaseURL: "http://localhost:8080"}
	}
	return cfg
}
