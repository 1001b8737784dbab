//go:build integration

package bucket_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dbtcheck/internal/ratelimit/store/bucket"
	"dbtcheck/pkg/testutil/containers"
)

type RedisBucketStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *bucket.RedisBucketStore
}

func TestRedisBucketStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBucketStoreSuite))
}

func (s *RedisBucketStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = bucket.NewRedisBucketStore(s.redis.Client)
}

func (s *RedisBucketStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisBucketStoreSuite) TestAllowUpToLimit() {
	ctx := context.Background()
	for i := range 3 {
		result, err := s.store.Allow(ctx, "ip:1.2.3.4:start", 3, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(3-(i+1), result.Remaining)
	}

	result, err := s.store.Allow(ctx, "ip:1.2.3.4:start", 3, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Positive(result.RetryAfter)
	s.LessOrEqual(result.RetryAfter, 60)
}

func (s *RedisBucketStoreSuite) TestWindowExpires() {
	ctx := context.Background()
	window := 300 * time.Millisecond

	_, err := s.store.Allow(ctx, "ip:5.6.7.8:otp", 1, window)
	s.Require().NoError(err)
	result, err := s.store.Allow(ctx, "ip:5.6.7.8:otp", 1, window)
	s.Require().NoError(err)
	s.False(result.Allowed)

	time.Sleep(window + 50*time.Millisecond)

	result, err = s.store.Allow(ctx, "ip:5.6.7.8:otp", 1, window)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *RedisBucketStoreSuite) TestReset() {
	ctx := context.Background()
	_, err := s.store.Allow(ctx, "ip:9.9.9.9:chat", 1, time.Minute)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Reset(ctx, "ip:9.9.9.9:chat"))

	result, err := s.store.Allow(ctx, "ip:9.9.9.9:chat", 1, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}
