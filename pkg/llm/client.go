package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrDisabled is returned by the client used when no provider is configured.
var ErrDisabled = errors.New("llm disabled")

// Client turns a prompt into generated text.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CollaboratorFailure wraps any failure of the language model: transport,
// timeout, bad status or an empty answer. Callers fall back to templates.
type CollaboratorFailure struct {
	Provider string
	Err      error
}

func (e *CollaboratorFailure) Error() string {
	return fmt.Sprintf("%s collaborator failed: %v", e.Provider, e.Err)
}

func (e *CollaboratorFailure) Unwrap() error { return e.Err }

// IsFailure reports whether err came from the language model.
func IsFailure(err error) bool {
	var cf *CollaboratorFailure
	return errors.As(err, &cf)
}

type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float32
	MaxTokens   int
}

// New picks a provider by name. An empty provider or API key yields the
// disabled client so the service still runs on its fallbacks.
func New(cfg Config, logger *zap.Logger) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == "none" || cfg.APIKey == "" {
		logger.Info("LLM disabled, using rule-based fallbacks")
		return Disabled{}, nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}

	switch provider {
	case "gemini":
		return NewGemini(cfg, httpClient, logger.Named("gemini")), nil
	case "groq", "openai":
		return NewOpenAI(provider, cfg, httpClient, logger.Named(provider)), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// Disabled always fails so every caller takes its deterministic path.
type Disabled struct{}

func (Disabled) Generate(context.Context, string) (string, error) {
	return "", &CollaboratorFailure{Provider: "disabled", Err: ErrDisabled}
}

// Func adapts a plain function to Client.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Generate(ctx context.Context, prompt string) (string, error) { return f(ctx, prompt) }

func statusError(provider string, code int, body []byte) error {
	switch code {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s API error: invalid or missing API key", provider)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s API error: rate limit exceeded", provider)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return fmt.Errorf("%s API error: service temporarily unavailable (status %d)", provider, code)
	default:
		return fmt.Errorf("%s API error (status %d): %s", provider, code, truncate(string(body), 200))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
