// Package llmutils builds an llm.Client from configuration.
package llmutils

import (
	"fmt"
	"os"

	"github.com/papercomputeco/tomes/pkg/llm"
	"github.com/papercomputeco/tomes/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/tomes/pkg/llm/provider/ollama"
	"github.com/papercomputeco/tomes/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	ProviderAnthropic = anthropic.Name
	ProviderOpenAI    = openai.Name
	ProviderOllama    = ollama.Name
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{ProviderAnthropic, ProviderOpenAI, ProviderOllama}
}

type NewClientOpts struct {
	ProviderType string
	TargetURL    string
	Model        string

	// APIKey falls back to OPENAI_API_KEY or ANTHROPIC_API_KEY when empty.
	APIKey string
}

// NewClient creates the client for o.ProviderType.
func NewClient(o *NewClientOpts) (llm.Client, error) {
	switch o.ProviderType {
	case ProviderOpenAI:
		return openai.New(openai.Config{
			APIKey:  keyOrEnv(o.APIKey, "OPENAI_API_KEY"),
			BaseURL: o.TargetURL,
			Model:   o.Model,
		}), nil
	case ProviderOllama:
		return ollama.New(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		}), nil
	case ProviderAnthropic:
		return anthropic.New(anthropic.Config{
			APIKey:  keyOrEnv(o.APIKey, "ANTHROPIC_API_KEY"),
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unknown llm provider: %q (supported: %v)", o.ProviderType, SupportedProviders())
	}
}

func keyOrEnv(key, env string) string {
	if key != "" {
		return key
	}
	return os.Getenv(env)
}
