package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultBaseURL        = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel          = "gemini-1.5-flash-latest"
	DefaultServerBackoff  = time.Second
	DefaultNetworkBackoff = 2 * time.Second
	DefaultTimeout        = 30 * time.Second

	// maxRetries is shared by server and network failures; a network failure
	// is retried at most once within it.
	maxRetries        = 2
	maxNetworkRetries = 1
	maxResponseBytes  = 1 << 20
)

var tracer = otel.Tracer("dbtcheck/internal/chat")

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []SafetySetting  `json:"safetySettings,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// RetryObserver is notified before each retry; reason is "server" or "network".
type RetryObserver func(reason string)

// GeminiClient calls the generateContent REST endpoint.
//
// Retry policy: a 5xx response is retried up to twice with a linear delay of
// serverBackoff × attempt; a transport failure is retried once after
// networkBackoff. Other statuses and malformed bodies are not retried.
type GeminiClient struct {
	baseURL        string
	model          string
	apiKey         string
	client         *http.Client
	serverBackoff  time.Duration
	networkBackoff time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
	onRetry        RetryObserver
	logger         *slog.Logger
}

// GeminiOption configures a GeminiClient.
type GeminiOption func(*GeminiClient)

func WithBaseURL(u string) GeminiOption {
	return func(c *GeminiClient) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.baseURL = u
		}
	}
}

func WithModel(m string) GeminiOption {
	return func(c *GeminiClient) {
		if m = strings.TrimSpace(m); m != "" {
			c.model = m
		}
	}
}

func WithHTTPClient(hc *http.Client) GeminiOption {
	return func(c *GeminiClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithBackoff overrides the retry delays. Zero values keep the defaults.
func WithBackoff(server, network time.Duration) GeminiOption {
	return func(c *GeminiClient) {
		if server > 0 {
			c.serverBackoff = server
		}
		if network > 0 {
			c.networkBackoff = network
		}
	}
}

func WithRetryObserver(fn RetryObserver) GeminiOption {
	return func(c *GeminiClient) { c.onRetry = fn }
}

func WithClientLogger(l *slog.Logger) GeminiOption {
	return func(c *GeminiClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewGeminiClient builds a client. An empty apiKey yields a client whose every
// call fails with CategoryNotConfigured.
func NewGeminiClient(apiKey string, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		baseURL:        DefaultBaseURL,
		model:          DefaultModel,
		apiKey:         strings.TrimSpace(apiKey),
		client:         &http.Client{Timeout: DefaultTimeout},
		serverBackoff:  DefaultServerBackoff,
		networkBackoff: DefaultNetworkBackoff,
		sleep:          sleepContext,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *GeminiClient) Configured() bool {
	return c.apiKey != ""
}

// Generate sends prompt with p's generation settings and returns the trimmed
// text of the first candidate.
func (c *GeminiClient) Generate(ctx context.Context, p Profile, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "chat.gemini.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("chat.profile", p.Name),
		attribute.String("chat.model", c.model),
	)

	text, err := c.generate(ctx, p, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(GetCategory(err)))
		return "", err
	}
	return text, nil
}

func (c *GeminiClient) generate(ctx context.Context, p Profile, prompt string) (string, error) {
	if !c.Configured() {
		return "", &UpstreamError{Category: CategoryNotConfigured}
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     p.Temperature,
			TopK:            p.TopK,
			TopP:            p.TopP,
			MaxOutputTokens: p.MaxOutputTokens,
		},
		SafetySettings: p.Safety,
	})
	if err != nil {
		return "", &UpstreamError{Category: CategoryInternal, Err: fmt.Errorf("encode request: %w", err)}
	}

	retries, networkRetries := 0, 0
	for attempt := 1; ; attempt++ {
		text, status, err := c.do(ctx, body)
		switch {
		case err == nil:
			return text, nil
		case status >= http.StatusInternalServerError && retries < maxRetries:
			retries++
			c.logger.WarnContext(ctx, "chat upstream server error, retrying",
				"status", status,
				"attempt", attempt,
			)
			c.notify("server")
			if err := c.sleep(ctx, c.serverBackoff*time.Duration(retries)); err != nil {
				return "", &UpstreamError{Category: CategoryInternal, StatusCode: status, Attempts: attempt, Err: err}
			}
		case GetCategory(err) == CategoryNetwork && retries < maxRetries && networkRetries < maxNetworkRetries:
			retries++
			networkRetries++
			c.logger.WarnContext(ctx, "chat upstream unreachable, retrying",
				"attempt", attempt,
				"error", err,
			)
			c.notify("network")
			if err := c.sleep(ctx, c.networkBackoff); err != nil {
				return "", &UpstreamError{Category: CategoryInternal, Attempts: attempt, Err: err}
			}
		default:
			var ue *UpstreamError
			if errors.As(err, &ue) {
				ue.Attempts = attempt
			}
			return "", err
		}
	}
}

// do performs one request. status is non-zero whenever a response arrived.
func (c *GeminiClient) do(ctx context.Context, body []byte) (string, int, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", 0, &UpstreamError{Category: CategoryInternal, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", 0, &UpstreamError{Category: CategoryInternal, Err: ctx.Err()}
		}
		// The URL carries the key; never surface it.
		return "", 0, &UpstreamError{Category: CategoryNetwork, Err: errors.New("request failed")}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		category := CategoryStatus
		if resp.StatusCode >= http.StatusInternalServerError {
			category = CategoryServer
		}
		return "", resp.StatusCode, &UpstreamError{Category: category, StatusCode: resp.StatusCode}
	}

	var payload generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return "", resp.StatusCode, &UpstreamError{Category: CategoryInternal, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(payload.Candidates) == 0 || len(payload.Candidates[0].Content.Parts) == 0 ||
		payload.Candidates[0].Content.Parts[0].Text == nil {
		return "", resp.StatusCode, &UpstreamError{Category: CategoryShape}
	}
	return strings.TrimSpace(*payload.Candidates[0].Content.Parts[0].Text), resp.StatusCode, nil
}

func (c *GeminiClient) notify(reason string) {
	if c.onRetry != nil {
		c.onRetry(reason)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
