package status

import (
	"context"

	"dbtcheck/pkg/domain"
)

// Verifier decides the status outcome for an identity number.
type Verifier interface {
	ID() string
	Verify(ctx context.Context, number domain.IdentityNumber) (Outcome, error)
}

// SimulatedVerifier draws from the scenario table. The number is ignored.
type SimulatedVerifier struct {
	sampler *Sampler
}

func NewSimulatedVerifier(sampler *Sampler) *SimulatedVerifier {
	return &SimulatedVerifier{sampler: sampler}
}

func (v *SimulatedVerifier) ID() string { return "simulated" }

func (v *SimulatedVerifier) Verify(ctx context.Context, _ domain.IdentityNumber) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	return v.sampler.Draw(), nil
}
