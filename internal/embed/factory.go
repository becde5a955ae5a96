package embed

import (
	"context"
	"fmt"
	"log/slog"
)

// Backend selects the embedding implementation.
type Backend string

const (
	BackendOllama Backend = "ollama"
	BackendOpenAI Backend = "openai"
	BackendStatic Backend = "static"
	BackendAuto   Backend = "auto"
)

// FactoryConfig selects and configures an embedding backend.
type FactoryConfig struct {
	Backend    Backend
	Ollama     OllamaConfig
	OpenAI     OpenAIConfig
	Dimensions int
}

// New creates the configured embedder. BackendAuto tries Ollama first, then
// OpenAI if an API key is configured, then falls back to the static embedder
// so indexing never hard-fails on a missing model.
func New(ctx context.Context, cfg FactoryConfig) (Embedder, error) {
	switch cfg.Backend {
	case BackendOllama:
		return NewOllamaEmbedder(ctx, cfg.Ollama)
	case BackendOpenAI:
		return NewOpenAIEmbedder(cfg.OpenAI)
	case BackendStatic:
		return NewStaticEmbedder(cfg.Dimensions), nil
	case BackendAuto, "":
		if e, err := NewOllamaEmbedder(ctx, cfg.Ollama); err == nil {
			return e, nil
		} else {
			slog.Debug("ollama_unavailable", slog.String("error", err.Error()))
		}
		if cfg.OpenAI.APIKey != "" {
			if e, err := NewOpenAIEmbedder(cfg.OpenAI); err == nil {
				return e, nil
			}
		}
		slog.Warn("embedding_backend_fallback",
			slog.String("backend", string(BackendStatic)),
			slog.String("reason", "no embedding service reachable"))
		return NewStaticEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Backend)
	}
}
