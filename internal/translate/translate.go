package translate

import (
	"context"
	"fmt"
	"log/slog"

	"subforge/internal/config"
)

// Translator converts a batch of texts between languages. Implementations
// return exactly one translation per input, in input order.
type Translator interface {
	Translate(ctx context.Context, texts []string, sourceLanguage, targetLanguage string) ([]string, error)
}

// New returns the translator selected by the configuration.
func New(cfg config.Translation, logger *slog.Logger) (Translator, error) {
	switch cfg.Driver {
	case "deepl":
		return NewDeepLClient(cfg.DeepL, logger), nil
	case "azure":
		return NewAzureClient(cfg.Azure, logger), nil
	default:
		return nil, fmt.Errorf("unsupported translation driver %q", cfg.Driver)
	}
}
