package status

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStager_RevealsInOrder(t *testing.T) {
	s := Stager{Step2Delay: 20 * time.Millisecond, Step3Delay: 30 * time.Millisecond}
	outcome := Outcome{IdentityLinked: true, TransferEnabled: false, MappingComplete: true}

	start := time.Now()
	var reveals []Reveal
	var at []time.Duration
	err := s.Run(context.Background(), outcome, func(r Reveal) {
		reveals = append(reveals, r)
		at = append(at, time.Since(start))
	})
	require.NoError(t, err)

	require.Len(t, reveals, 3)
	assert.Equal(t, Reveal{Step: 1, Field: FieldIdentityLinked, Value: true}, reveals[0])
	assert.Equal(t, Reveal{Step: 2, Field: FieldTransferEnabled, Value: false}, reveals[1])
	assert.Equal(t, Reveal{Step: 3, Field: FieldMappingComplete, Value: true}, reveals[2])

	assert.Less(t, at[0], 20*time.Millisecond, "field 1 is revealed immediately")
	assert.GreaterOrEqual(t, at[1], 20*time.Millisecond)
	assert.GreaterOrEqual(t, at[2], 50*time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, s.Total())
}

func TestStager_StopsOnCancel(t *testing.T) {
	s := Stager{Step2Delay: time.Hour, Step3Delay: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())

	var reveals []Reveal
	err := s.Run(ctx, Outcome{}, func(r Reveal) {
		reveals = append(reveals, r)
		cancel()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, reveals, 1)
}

func TestDefaultStager(t *testing.T) {
	s := DefaultStager()
	assert.Zero(t, s.LeadIn)
	assert.Equal(t, 400*time.Millisecond, s.Step2Delay)
	assert.Equal(t, 600*time.Millisecond, s.Step3Delay)
}
