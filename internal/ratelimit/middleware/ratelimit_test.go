package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbtcheck/internal/ratelimit/models"
	"dbtcheck/internal/ratelimit/service/requestlimit"
	"dbtcheck/internal/ratelimit/store/bucket"
	"dbtcheck/pkg/requestcontext"
	"dbtcheck/pkg/testutil"
)

type brokenLimiter struct{}

func (brokenLimiter) CheckIP(context.Context, string, models.EndpointClass) (*models.RateLimitResult, error) {
	return nil, errors.New("redis down")
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func requestFrom(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/checks", nil)
	return req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, "test"))
}

func TestRateLimit_DeniesAfterLimit(t *testing.T) {
	svc, err := requestlimit.New(bucket.NewInMemoryBucketStore(),
		requestlimit.WithLimits(map[models.EndpointClass]models.Limit{
			models.ClassStart: {Requests: 1, Window: time.Minute},
		}),
	)
	require.NoError(t, err)
	h := New(svc, quietLogger()).RateLimit(models.ClassStart)(okHandler())

	first := testutil.DoRequest(h, requestFrom("198.51.100.1"))
	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := testutil.DoRequest(h, requestFrom("198.51.100.1"))
	testutil.AssertStatus(t, second, http.StatusTooManyRequests)
	body := testutil.UnmarshalResponse[models.RateLimitExceededResponse](t, second)
	assert.Equal(t, "rate_limited", body.Error)
	assert.Positive(t, body.RetryAfter)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	other := testutil.DoRequest(h, requestFrom("198.51.100.2"))
	assert.Equal(t, http.StatusNoContent, other.Code, "limits are per client IP")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	h := New(brokenLimiter{}, quietLogger()).RateLimit(models.ClassChat)(okHandler())

	rr := testutil.DoRequest(h, requestFrom("198.51.100.1"))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	h := New(brokenLimiter{}, quietLogger(), WithDisabled(true)).RateLimit(models.ClassChat)(okHandler())

	rr := testutil.DoRequest(h, requestFrom("198.51.100.1"))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
}
