package scanning

import (
	"fmt"

	"github.com/lehigh-university-libraries/shelfscan/internal/config"
	"github.com/lehigh-university-libraries/shelfscan/internal/gemini"
	"github.com/lehigh-university-libraries/shelfscan/internal/images"
	"github.com/lehigh-university-libraries/shelfscan/internal/ollama"
	"github.com/lehigh-university-libraries/shelfscan/internal/openai"
	"github.com/lehigh-university-libraries/shelfscan/internal/providers"
	"github.com/lehigh-university-libraries/shelfscan/internal/vertex"
)

// NewProvider returns the vision model client named by cfg.LLM.Provider
func NewProvider(cfg *config.Config) (providers.Provider, error) {
	switch cfg.LLM.Provider {
	case "gemini":
		return gemini.New(""), nil
	case "vertex":
		return vertex.New(cfg.LLM.VertexProject, cfg.LLM.VertexLocation), nil
	case "openai":
		return openai.New("", cfg.LLM.OpenAIBaseURL), nil
	case "ollama":
		return ollama.New(cfg.LLM.OllamaURL), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.LLM.Provider)
	}
}

// NewServiceFromConfig wires a scan service for cfg over loader
func NewServiceFromConfig(cfg *config.Config, loader SourceLoader) (*Service, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	return NewService(
		provider,
		images.NewNormalizer(cfg.Scan.MaxWidth, cfg.Scan.Quality),
		loader,
		Options{
			ProviderName: cfg.LLM.Provider,
			Model:        cfg.ResolvedModel(),
			Temperature:  cfg.LLM.Temperature,
			Concurrency:  cfg.Scan.Concurrency,
			LockFolders:  cfg.Scan.LockFolders,
		},
	), nil
}
