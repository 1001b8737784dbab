package requestlimit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"dbtcheck/internal/ratelimit/metrics"
	"dbtcheck/internal/ratelimit/models"
	"dbtcheck/internal/ratelimit/store/bucket"
	dErrors "dbtcheck/pkg/domain-errors"
	"dbtcheck/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Allow(context.Context, string, int, time.Duration) (*models.RateLimitResult, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Reset(context.Context, string) error { return nil }

// ServiceSuite uses the real in-memory bucket store.
type ServiceSuite struct {
	suite.Suite
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	svc, err := New(bucket.NewInMemoryBucketStore(),
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		WithMetrics(metrics.NewWithRegisterer(prometheus.NewRegistry())),
		WithLimits(map[models.EndpointClass]models.Limit{
			models.ClassOTP:  {Requests: 2, Window: time.Minute},
			models.ClassChat: {Requests: 1, Window: time.Minute},
		}),
		WithAllowlist([]string{"10.0.0.1", " "}),
	)
	s.Require().NoError(err)
	s.service = svc
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func (s *ServiceSuite) TestNewRequiresStore() {
	_, err := New(nil)
	s.Error(err)
}

func (s *ServiceSuite) TestCheckIP_DeniesOverLimit() {
	for range 2 {
		result, err := s.service.CheckIP(s.ctx, "203.0.113.7", models.ClassOTP)
		s.Require().NoError(err)
		s.True(result.Allowed)
	}

	result, err := s.service.CheckIP(s.ctx, "203.0.113.7", models.ClassOTP)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Positive(result.RetryAfter)
}

func (s *ServiceSuite) TestCheckIP_ClassesHaveSeparateBuckets() {
	_, err := s.service.CheckIP(s.ctx, "203.0.113.8", models.ClassChat)
	s.Require().NoError(err)

	result, err := s.service.CheckIP(s.ctx, "203.0.113.8", models.ClassOTP)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *ServiceSuite) TestCheckIP_MissingClassIsDenied() {
	result, err := s.service.CheckIP(s.ctx, "203.0.113.9", models.ClassRead)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(60, result.RetryAfter)
}

func (s *ServiceSuite) TestCheckIP_AllowlistBypasses() {
	for range 5 {
		result, err := s.service.CheckIP(s.ctx, "10.0.0.1", models.ClassChat)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.True(result.Bypassed)
	}
}

func (s *ServiceSuite) TestCheckIP_AllowlistMatchesMappedAddress() {
	result, err := s.service.CheckIP(s.ctx, "::ffff:10.0.0.1", models.ClassChat)
	s.Require().NoError(err)
	s.True(result.Bypassed)
}

func (s *ServiceSuite) TestCheckIP_StoreFailureIsInternal() {
	svc, err := New(failingStore{})
	s.Require().NoError(err)

	_, err = svc.CheckIP(s.ctx, "203.0.113.7", models.ClassStart)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestAnonymizeIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"203.0.113.77", "203.0.113.0/24"},
		{"::ffff:203.0.113.77", "203.0.113.0/24"},
		{"2001:db8:abcd:12::1", "2001:db8:abcd::/48"},
		{"unknown", "invalid"},
		{"", "invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, AnonymizeIP(tt.in))
		})
	}
}

func TestRateLimitKey_SanitizesIdentifier(t *testing.T) {
	key := models.NewRateLimitKey(models.KeyPrefixIP, "::1", models.ClassOTP)
	require.Equal(t, "ip:__1:otp", key.String())
}
