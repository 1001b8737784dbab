package requestlimit

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"time"

	"dbtcheck/internal/ratelimit/metrics"
	"dbtcheck/internal/ratelimit/models"
	"dbtcheck/internal/ratelimit/ports"
	dErrors "dbtcheck/pkg/domain-errors"
	strutil "dbtcheck/pkg/platform/strings"
	"dbtcheck/pkg/requestcontext"
)

type BucketStore = ports.BucketStore

// Service applies per-IP sliding window limits by endpoint class.
type Service struct {
	buckets   BucketStore
	limits    map[models.EndpointClass]models.Limit
	allowlist map[string]struct{}
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLimits replaces the limit table. Classes missing from it are denied.
func WithLimits(limits map[models.EndpointClass]models.Limit) Option {
	return func(s *Service) {
		if limits != nil {
			s.limits = limits
		}
	}
}

// WithAllowlist exempts client IPs, typically health probes. Addresses are
// compared in canonical form.
func WithAllowlist(ips []string) Option {
	return func(s *Service) {
		for _, ip := range strutil.DedupeAndTrimFunc(ips, canonicalIP) {
			s.allowlist[ip] = struct{}{}
		}
	}
}

func New(buckets BucketStore, opts ...Option) (*Service, error) {
	if buckets == nil {
		return nil, errors.New("buckets store is required")
	}
	svc := &Service{
		buckets:   buckets,
		limits:    models.DefaultLimits(),
		allowlist: map[string]struct{}{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CheckIP consumes one request from ip's bucket for class.
func (s *Service) CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	now := requestcontext.Now(ctx)

	limit, ok := s.limits[class]
	if !ok || limit.Requests <= 0 || limit.Window <= 0 {
		s.logger.WarnContext(ctx, "rate limit config missing",
			"ip_prefix", AnonymizeIP(ip),
			"endpoint_class", class,
		)
		s.metrics.RecordDecision(string(class), false)
		return &models.RateLimitResult{
			Allowed:    false,
			ResetAt:    now,
			RetryAfter: 60,
		}, nil
	}

	if _, bypass := s.allowlist[canonicalIP(ip)]; bypass {
		s.metrics.RecordAllowlistBypass()
		return &models.RateLimitResult{
			Allowed:   true,
			Bypassed:  true,
			Limit:     limit.Requests,
			Remaining: limit.Requests,
			ResetAt:   now.Add(limit.Window),
		}, nil
	}

	key := models.NewRateLimitKey(models.KeyPrefixIP, ip, class)
	result, err := s.buckets.Allow(ctx, key.String(), limit.Requests, limit.Window)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}

	s.metrics.RecordDecision(string(class), result.Allowed)
	if !result.Allowed {
		s.logger.InfoContext(ctx, "ip rate limit exceeded",
			"ip_prefix", AnonymizeIP(ip),
			"endpoint_class", class,
			"limit", limit.Requests,
			"window_seconds", int(limit.Window/time.Second),
		)
	}
	return result, nil
}

// canonicalIP unmaps IPv4-in-IPv6 and compresses IPv6. Anything that is not
// an address is returned unchanged.
func canonicalIP(v string) string {
	addr, err := netip.ParseAddr(v)
	if err != nil {
		return v
	}
	return addr.Unmap().String()
}

// AnonymizeIP keeps the network part of an address for logs: /24 for IPv4,
// /48 for IPv6. Unparseable input is returned as "invalid".
func AnonymizeIP(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	bits := 48
	if addr.Is4() || addr.Is4In6() {
		addr = addr.Unmap()
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.String()
}
