// Package receipt builds the read-only record of a completed check and
// renders it as a printable document.
package receipt

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dbtcheck/internal/status"
	"dbtcheck/pkg/domain"
)

// TotalChecks is the number of status fields a receipt summarizes.
const TotalChecks = 3

// Tier is the qualitative label derived from the passed count.
type Tier string

const (
	TierAllActive  Tier = "all_active"
	TierMostActive Tier = "most_active"
	TierSomeActive Tier = "some_active"
	TierInactive   Tier = "inactive"
)

var tierLabelKeys = map[Tier]string{
	TierAllActive:  "all_services_active",
	TierMostActive: "most_services_active",
	TierSomeActive: "some_services_active",
	TierInactive:   "services_inactive",
}

// TierFor maps an exact passed count to its tier.
func TierFor(passed int) Tier {
	switch passed {
	case 3:
		return TierAllActive
	case 2:
		return TierMostActive
	case 1:
		return TierSomeActive
	default:
		return TierInactive
	}
}

// LabelKey is the catalog key of the tier's display label.
func (t Tier) LabelKey() string {
	return tierLabelKeys[t]
}

type CheckResult struct {
	Field   status.Field `json:"field"`
	Label   string       `json:"label"`
	Passed  bool         `json:"passed"`
	Message string       `json:"message"`
	URL     string       `json:"url"`
}

type Summary struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
	Failed int `json:"failed"`
}

// Receipt is never mutated after Build.
type Receipt struct {
	ID           string        `json:"id"`
	IssuedAt     time.Time     `json:"issued_at"`
	MaskedNumber string        `json:"masked_number"`
	Checks       []CheckResult `json:"checks"`
	Summary      Summary       `json:"summary"`
	Tier         Tier          `json:"tier"`
	TierLabel    string        `json:"tier_label"`
}

// Input carries everything Build needs. ID and IssuedAt come from the
// caller so Build stays deterministic.
type Input struct {
	ID         string
	IssuedAt   time.Time
	Number     domain.IdentityNumber
	Outcome    status.Outcome
	Translator status.Translator
}

// Build derives the receipt from a fixed outcome.
func Build(in Input) Receipt {
	checks := make([]CheckResult, 0, len(status.Fields))
	passed := 0
	for _, f := range status.Fields {
		v := in.Outcome.Value(f)
		if v {
			passed++
		}
		checks = append(checks, CheckResult{
			Field:   f,
			Label:   status.Label(f, in.Translator),
			Passed:  v,
			Message: status.Message(f, v, in.Translator),
			URL:     status.ReferenceURL(f),
		})
	}
	tier := TierFor(passed)
	return Receipt{
		ID:           in.ID,
		IssuedAt:     in.IssuedAt,
		MaskedNumber: in.Number.Masked(domain.DefaultMaskChar),
		Checks:       checks,
		Summary:      Summary{Total: TotalChecks, Passed: passed, Failed: TotalChecks - passed},
		Tier:         tier,
		TierLabel:    in.Translator.T(tier.LabelKey()),
	}
}

// IDGenerator produces receipt IDs.
type IDGenerator func(now time.Time) string

// NewID returns DBT-<unix millis>-<8 hex>. The random suffix keeps IDs unique
// when two receipts share a millisecond.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("DBT-%d-%s", now.UnixMilli(), suffix)
}
