package status

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

	"dbtcheck/pkg/domain"
	"dbtcheck/pkg/platform/circuit"
)

const registryVerifierID = "registry"

var tracer = otel.Tracer("dbtcheck/internal/status")

type registryRequest struct {
	AadhaarNumber string `json:"aadhaar_number"`
}

type registryResponse struct {
	AadhaarLinked *bool `json:"aadhaar_linked"`
	DBTEnabled    *bool `json:"dbt_enabled"`
	NPCIMapped    *bool `json:"npci_mapped"`
}

// RegistryVerifier asks a verification backend for the real status:
//
//	POST {baseURL}/v1/dbt-status  {"aadhaar_number": "..."}
//
// Upstream outages are counted by a circuit breaker. While the breaker is
// open, failures are answered by the fallback verifier when one is set.
type RegistryVerifier struct {
	baseURL  string
	apiKey   string
	client   *http.Client
	breaker  *circuit.Breaker
	fallback Verifier
	logger   *slog.Logger
}

// RegistryOption configures a RegistryVerifier.
type RegistryOption func(*RegistryVerifier)

func WithHTTPClient(c *http.Client) RegistryOption {
	return func(v *RegistryVerifier) {
		if c != nil {
			v.client = c
		}
	}
}

func WithAPIKey(key string) RegistryOption {
	return func(v *RegistryVerifier) { v.apiKey = key }
}

func WithBreaker(b *circuit.Breaker) RegistryOption {
	return func(v *RegistryVerifier) {
		if b != nil {
			v.breaker = b
		}
	}
}

// WithFallback answers requests while the breaker is open.
func WithFallback(f Verifier) RegistryOption {
	return func(v *RegistryVerifier) { v.fallback = f }
}

func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(v *RegistryVerifier) {
		if l != nil {
			v.logger = l
		}
	}
}

func NewRegistryVerifier(baseURL string, opts ...RegistryOption) (*RegistryVerifier, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("registry base URL is required")
	}
	v := &RegistryVerifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		breaker: circuit.New(registryVerifierID),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

func (v *RegistryVerifier) ID() string { return registryVerifierID }

func (v *RegistryVerifier) Verify(ctx context.Context, number domain.IdentityNumber) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "status.registry.verify")
	defer span.End()
	span.SetAttributes(attribute.String("verifier.id", registryVerifierID))

	outcome, err := v.call(ctx, number)
	if err == nil {
		if _, change := v.breaker.RecordSuccess(); change.Closed {
			v.logger.InfoContext(ctx, "registry circuit closed", "breaker", v.breaker.Name())
		}
		return outcome, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, string(GetCategory(err)))
	if !IsRetryable(err) {
		return Outcome{}, err
	}

	useFallback, change := v.breaker.RecordFailure()
	if change.Opened {
		v.logger.WarnContext(ctx, "registry circuit opened",
			"breaker", v.breaker.Name(),
			"error", err,
		)
	}
	if useFallback && v.fallback != nil {
		span.SetAttributes(attribute.String("verifier.fallback", v.fallback.ID()))
		return v.fallback.Verify(ctx, number)
	}
	return Outcome{}, err
}

func (v *RegistryVerifier) call(ctx context.Context, number domain.IdentityNumber) (Outcome, error) {
	body, err := json.Marshal(registryRequest{AadhaarNumber: number.String()})
	if err != nil {
		return Outcome{}, NewVerifierError(ErrorInternal, registryVerifierID, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/v1/dbt-status", bytes.NewReader(body))
	if err != nil {
		return Outcome{}, NewVerifierError(ErrorInternal, registryVerifierID, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+v.apiKey)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return Outcome{}, NewVerifierError(ErrorTimeout, registryVerifierID, "request timed out", err)
		}
		return Outcome{}, NewVerifierError(ErrorOutage, registryVerifierID, "request failed", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return Outcome{}, err
	}

	var payload registryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err != nil {
		return Outcome{}, NewVerifierError(ErrorBadData, registryVerifierID, "decode response", err)
	}
	if payload.AadhaarLinked == nil || payload.DBTEnabled == nil || payload.NPCIMapped == nil {
		return Outcome{}, NewVerifierError(ErrorContract, registryVerifierID, "response is missing status fields", nil)
	}
	return Outcome{
		IdentityLinked:  *payload.AadhaarLinked,
		TransferEnabled: *payload.DBTEnabled,
		MappingComplete: *payload.NPCIMapped,
	}, nil
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return NewVerifierError(ErrorNotFound, registryVerifierID, "no record for number", nil)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return NewVerifierError(ErrorAuthentication, registryVerifierID, "credentials rejected", nil)
	case code == http.StatusTooManyRequests:
		return NewVerifierError(ErrorRateLimited, registryVerifierID, "rate limited", nil)
	case code >= 500:
		return NewVerifierError(ErrorOutage, registryVerifierID, fmt.Sprintf("upstream returned %d", code), nil)
	default:
		return NewVerifierError(ErrorContract, registryVerifierID, fmt.Sprintf("unexpected status %d", code), nil)
	}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
