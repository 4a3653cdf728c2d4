package llm

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"omiweather/app/config"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/samber/do"
	"github.com/samber/oops"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	systemPrompt       = "You are Omi, a helpful AI assistant. Provide clear, concise, and friendly responses."
	defaultTemperature = 0.7
)

var ErrEmptyCompletion = errors.New("no chat completion found")

// Model is the part of llms.Model the client relies on.
type Model interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Client struct {
	model   Model
	timeout time.Duration
	retry   config.Retry
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	httpClient, err := createHTTPClient(cfg.OpenAI)
	if err != nil {
		return nil, err
	}

	model, err := openai.New(
		openai.WithToken(cfg.OpenAI.Token),
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithModel(cfg.OpenAI.Model),
		openai.WithHTTPClient(httpClient),
		openai.WithCallback(LogCallbackHandler{}),
	)
	if err != nil {
		return nil, oops.Errorf("failed to create openai client: %w", err)
	}

	return NewWithModel(model, cfg.OpenAI.Timeout, cfg.OpenAI.Retry), nil
}

func NewWithModel(model Model, timeout time.Duration, retry config.Retry) *Client {
	return &Client{
		model:   model,
		timeout: timeout,
		retry:   retry,
	}
}

// Complete sends prompt as the user message and returns the trimmed answer.
// Failed attempts are retried with exponential backoff.
func (c *Client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	operation := func() (string, error) {
		return c.complete(ctx, prompt, maxTokens)
	}

	notify := func(err error, delay time.Duration) {
		slog.WarnContext(ctx, "Completion failed, retrying",
			"delay", delay,
			"error", err)
	}

	result, err := backoff.RetryNotifyWithData(operation, c.backOff(ctx), notify)
	if err != nil {
		return "", oops.
			Code("provider_failure").
			With("attempts", c.retry.Attempts).
			Wrapf(err, "completion failed")
	}

	return result, nil
}

func (c *Client) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.model.GenerateContent(ctx,
		[]llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
			llms.TextParts(llms.ChatMessageTypeHuman, prompt),
		},
		llms.WithTemperature(defaultTemperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return "", oops.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return strings.TrimSpace(resp.Choices[0].Content), nil
}

func (c *Client) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retry.MinWait
	b.MaxInterval = c.retry.MaxWait
	b.MaxElapsedTime = 0
	b.Reset()

	retries := max(c.retry.Attempts-1, 0)

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

func createHTTPClient(cfg config.OpenAI) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, oops.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}, nil
}
