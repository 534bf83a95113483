package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
)

const (
	// DefaultTimeout bounds a single HTTP round trip to the API.
	DefaultTimeout = 2 * time.Minute
	// DefaultBreakerFailures is the number of consecutive transport failures
	// that opens the breaker.
	DefaultBreakerFailures = 5
	// DefaultBreakerCooldown is how long the breaker stays open.
	DefaultBreakerCooldown = 30 * time.Second
)

// Config configures the OpenAI provider.
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint, e.g. for an OpenAI compatible proxy.
	BaseURL string
	// RequestsPerMinute limits the call rate. Zero means unlimited.
	RequestsPerMinute int
	// BreakerFailures and BreakerCooldown tune the circuit breaker.
	BreakerFailures int
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
	Metrics         *instrumentation.Metrics
	Logger          *slog.Logger
}

// OpenAI is a Provider backed by the OpenAI chat completions API.
// Calls are sequential from the caller's point of view and never retried.
type OpenAI struct {
	client  *openai.Client
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(cfg Config) *OpenAI {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithService(logger, "openai")

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	} else {
		clientCfg.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}

	failures := cfg.BreakerFailures
	if failures <= 0 {
		failures = DefaultBreakerFailures
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = DefaultBreakerCooldown
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openai",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		// Bad response bodies are not the transport's fault.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrTransport)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &OpenAI{
		client:  openai.NewClientWithConfig(clientCfg),
		cb:      cb,
		limiter: limiter,
		metrics: cfg.Metrics,
		logger:  logger,
	}
}

// NewFactory returns a Factory that builds OpenAI providers sharing cfg.
func NewFactory(cfg Config) Factory {
	return func(apiKey string) Provider {
		c := cfg
		c.APIKey = apiKey
		return NewOpenAI(c)
	}
}

// Complete sends the request and returns the trimmed text of the first choice.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := instrumentation.StartCompletionSpan(ctx, req.Purpose, req.Model)
	defer span.End()

	start := time.Now()
	text, err := o.complete(ctx, req)
	status := Status(err)
	o.metrics.RecordCompletion(ctx, req.Purpose, status, time.Since(start))

	if err != nil {
		instrumentation.SetSpanError(span, err)
		o.logger.Debug("completion failed",
			logging.Operation("completion."+req.Purpose),
			logging.Model(req.Model),
			logging.Status(status),
			logging.Err(err))
		return "", err
	}
	instrumentation.SetSpanSuccess(span)
	return text, nil
}

func (o *OpenAI) complete(ctx context.Context, req Request) (string, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for rate limit: %w", err)
		}
	}

	out, err := o.cb.Execute(func() (interface{}, error) {
		return o.send(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return "", err
	}
	return out.(string), nil
}

func (o *OpenAI) send(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// classifyError sorts client errors into transport and decode failures.
func classifyError(err error) error {
	var (
		apiErr    *openai.APIError
		reqErr    *openai.RequestError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.As(err, &apiErr), errors.As(err, &reqErr):
		return fmt.Errorf("%w: %w", ErrTransport, err)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	default:
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
}
