package reasoning

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/papercomputeco/gleaner/pkg/retry"
)

const (
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
	ProviderDisabled = "disabled"

	defaultOpenAIModel  = "gpt-4o-mini"
	defaultOllamaModel  = "llama3.2"
	defaultOllamaURL    = "http://localhost:11434"
	defaultCallTimeout  = 30 * time.Second
	defaultRequestBurst = 1
)

// CallerConfig configures an LLM caller.
type CallerConfig struct {
	Provider string // "openai", "ollama" or "disabled"
	Model    string
	APIKey   string
	BaseURL  string

	// RequestsPerSecond throttles outgoing calls. Zero means unlimited.
	RequestsPerSecond float64

	Timeout time.Duration
	Retry   *retry.Policy
}

// NewCaller creates an LLMCallFunc for the configured provider. Both
// providers are reached through the OpenAI chat completions API; Ollama
// exposes it under /v1. The API key falls back to OPENAI_API_KEY.
func NewCaller(cfg CallerConfig) (LLMCallFunc, error) {
	provider := strings.ToLower(cfg.Provider)
	model := cfg.Model

	var clientConfig goopenai.ClientConfig
	switch provider {
	case ProviderOpenAI, "":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" && cfg.BaseURL == "" {
			return nil, errors.New("openai reasoning requires an API key")
		}
		if model == "" {
			model = defaultOpenAIModel
		}
		clientConfig = goopenai.DefaultConfig(apiKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}

	case ProviderOllama:
		if model == "" {
			model = defaultOllamaModel
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		clientConfig = goopenai.DefaultConfig("ollama")
		clientConfig.BaseURL = strings.TrimSuffix(baseURL, "/") + "/v1"

	case ProviderDisabled:
		return nil, ErrDisabled

	default:
		return nil, fmt.Errorf("unsupported reasoning provider: %s", cfg.Provider)
	}

	limiter := rate.NewLimiter(rate.Inf, defaultRequestBurst)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), defaultRequestBurst)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	policy := retry.DefaultPolicy
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}

	return newChatCaller(goopenai.NewClientWithConfig(clientConfig), model, limiter, timeout, policy), nil
}

func newChatCaller(client *goopenai.Client, model string, limiter *rate.Limiter, timeout time.Duration, policy retry.Policy) LLMCallFunc {
	return func(ctx context.Context, system, prompt string) (string, error) {
		req := goopenai.ChatCompletionRequest{
			Model: model,
			Messages: []goopenai.ChatCompletionMessage{
				{Role: goopenai.ChatMessageRoleSystem, Content: system},
				{Role: goopenai.ChatMessageRoleUser, Content: prompt},
			},
			ResponseFormat: &goopenai.ChatCompletionResponseFormat{
				Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
			},
		}

		var content string
		err := retry.Do(ctx, policy, func() error {
			if err := limiter.Wait(ctx); err != nil {
				return retry.Permanent(err)
			}

			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			resp, err := client.CreateChatCompletion(callCtx, req)
			if err != nil {
				if !retryable(err) {
					return retry.Permanent(err)
				}
				return err
			}
			if len(resp.Choices) == 0 {
				return retry.Permanent(errors.New("no choices in response"))
			}
			content = resp.Choices[0].Message.Content
			return nil
		})
		if err != nil {
			return "", err
		}
		return content, nil
	}
}

func retryable(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return retry.RetryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return retry.RetryableStatus(reqErr.HTTPStatusCode)
	}
	return true
}
