package handler

import (
	"time"

	"dbtcheck/internal/check"
	"dbtcheck/internal/receipt"
	"dbtcheck/internal/status"
	"dbtcheck/pkg/domain"
)

// FieldResponse is one status field. Status is null until revealed.
type FieldResponse struct {
	Field    status.Field `json:"field"`
	Label    string       `json:"label"`
	Status   *bool        `json:"status"`
	Message  string       `json:"message"`
	URL      string       `json:"url"`
	LinkHint string       `json:"link_hint"`
}

// CheckResponse is returned by every /checks endpoint that reports state.
type CheckResponse struct {
	ID                   string          `json:"id"`
	State                check.State     `json:"state"`
	Step                 int             `json:"step"`
	MaskedNumber         string          `json:"masked_number"`
	Language             string          `json:"language"`
	Fields               []FieldResponse `json:"fields"`
	OTPMessage           string          `json:"otp_message,omitempty"`
	DemoOTP              string          `json:"demo_otp,omitempty"`
	OTPAttemptsRemaining *int            `json:"otp_attempts_remaining,omitempty"`
	ReceiptReady         bool            `json:"receipt_ready"`
	Failure              string          `json:"failure,omitempty"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// ReceiptResponse wraps a built receipt.
type ReceiptResponse struct {
	CheckID string          `json:"check_id"`
	Receipt receipt.Receipt `json:"receipt"`
}

type ReferenceResponse struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

type ReferencesResponse struct {
	References []ReferenceResponse `json:"references"`
}

// FromCheck renders c in the caller's language.
func FromCheck(c *check.Check, tr status.Translator, lang string) *CheckResponse {
	resp := &CheckResponse{
		ID:           c.ID.String(),
		State:        c.State,
		Step:         c.Step,
		MaskedNumber: c.Number.Masked(domain.DefaultMaskChar),
		Language:     lang,
		Fields:       make([]FieldResponse, 0, len(status.Fields)),
		ReceiptReady: c.State == check.StateComplete && c.Receipt != nil,
		Failure:      c.Failure,
		UpdatedAt:    c.UpdatedAt,
	}
	for _, f := range status.Fields {
		fr := FieldResponse{
			Field: f,
			Label: status.Label(f, tr),
			URL:   status.ReferenceURL(f),
		}
		if v, ok := c.IsRevealed(f); ok {
			fr.Status = &v
			fr.Message = status.Message(f, v, tr)
			fr.LinkHint = status.LinkHint(v, tr)
		} else {
			if c.State == check.StateRunning {
				fr.Message = tr.T("status_checking")
			}
			fr.LinkHint = tr.T("visit_portal")
		}
		resp.Fields = append(resp.Fields, fr)
	}
	if c.State == check.StateAwaitingOTP {
		resp.OTPMessage = tr.T("otp_sent_message")
		if remaining := c.Challenge.Remaining(); remaining >= 0 {
			resp.OTPAttemptsRemaining = &remaining
		}
	}
	return resp
}

// FromReferences localizes the static portal list.
func FromReferences(refs []status.Reference, tr status.Translator) *ReferencesResponse {
	out := &ReferencesResponse{References: make([]ReferenceResponse, 0, len(refs))}
	for _, r := range refs {
		out.References = append(out.References, ReferenceResponse{Key: r.Key, Label: tr.T(r.LabelKey), URL: r.URL})
	}
	return out
}
