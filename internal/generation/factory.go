package generation

import (
	"context"
	"fmt"

	"github.com/deckgen/deckgen/internal/config"
	"github.com/deckgen/deckgen/pkg/logger"
)

// NewProvider binds an AIConfig to one of the two provider strategies.
func NewProvider(ctx context.Context, cfg config.AIConfig, log *logger.Logger) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg, log)
	case config.ProviderCompatible:
		return NewCompatProvider(cfg, log), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %q", cfg.Provider)
	}
}
