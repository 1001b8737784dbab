//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"dbtcheck/internal/check"
	"dbtcheck/internal/check/store"
	"dbtcheck/internal/receipt"
	"dbtcheck/internal/status"
	"dbtcheck/pkg/platform/sentinel"
	"dbtcheck/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client, time.Minute)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	outcome := status.Outcome{IdentityLinked: true, TransferEnabled: true}
	issued := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := &check.Check{
		ID:         uuid.New(),
		Number:     "123456789012",
		State:      check.StateComplete,
		Step:       3,
		VerifierID: "simulated",
		Outcome:    &outcome,
		Revealed: []check.Revealed{
			{Field: status.FieldIdentityLinked, Value: true, RevealedAt: issued},
		},
		Receipt: &receipt.Receipt{
			ID:           "DBT-1-abcdef01",
			IssuedAt:     issued,
			MaskedNumber: "XXXXXXXX9012",
			Summary:      receipt.Summary{Total: 3, Passed: 2, Failed: 1},
			Tier:         receipt.TierMostActive,
		},
		Language:  "hi",
		CreatedAt: issued,
		UpdatedAt: issued,
	}
	s.Require().NoError(s.store.Save(ctx, c))

	got, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Equal(c.State, got.State)
	s.Equal(*c.Outcome, *got.Outcome)
	s.Equal(c.Receipt.Summary, got.Receipt.Summary)
	s.True(c.CreatedAt.Equal(got.CreatedAt))
	s.Len(got.Revealed, 1)
}

func (s *RedisStoreSuite) TestTTLIsApplied() {
	ctx := context.Background()
	c := &check.Check{ID: uuid.New(), Number: "123456789012", State: check.StateAwaitingOTP}
	s.Require().NoError(s.store.Save(ctx, c))

	ttl, err := s.redis.Client.TTL(ctx, "dbtcheck:check:"+c.ID.String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, 50*time.Second)
	s.LessOrEqual(ttl, time.Minute)
}

func (s *RedisStoreSuite) TestNotFound() {
	ctx := context.Background()
	_, err := s.store.FindByID(ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(ctx, uuid.New()), sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestDelete() {
	ctx := context.Background()
	c := &check.Check{ID: uuid.New(), Number: "123456789012", State: check.StateAwaitingOTP}
	s.Require().NoError(s.store.Save(ctx, c))
	s.Require().NoError(s.store.Delete(ctx, c.ID))

	_, err := s.store.FindByID(ctx, c.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.NoError(s.store.Ping(ctx))
}
