// Package registrymock serves the DBT status registry API backed by the
// scenario table, so the registry verifier can run locally.
//
// Answers are deterministic per identity number: the number seeds the draw.
package registrymock

import (
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"dbtcheck/internal/status"
	"dbtcheck/pkg/domain"
	dErrors "dbtcheck/pkg/domain-errors"
	"dbtcheck/pkg/platform/httputil"
)

type statusRequest struct {
	AadhaarNumber string `json:"aadhaar_number"`
}

func (r *statusRequest) Validate() error {
	if strings.TrimSpace(r.AadhaarNumber) == "" {
		return dErrors.New(dErrors.CodeValidation, "aadhaar_number is required")
	}
	return nil
}

type statusResponse struct {
	AadhaarLinked bool `json:"aadhaar_linked"`
	DBTEnabled    bool `json:"dbt_enabled"`
	NPCIMapped    bool `json:"npci_mapped"`
}

// Server answers POST /v1/dbt-status.
type Server struct {
	apiKey  string
	table   []status.Scenario
	unknown map[domain.IdentityNumber]struct{}
	logger  *slog.Logger
}

type Option func(*Server)

// WithAPIKey requires "Authorization: Bearer <key>".
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = strings.TrimSpace(key) }
}

// WithUnknownNumbers makes the registry answer 404 for these numbers.
func WithUnknownNumbers(numbers ...domain.IdentityNumber) Option {
	return func(s *Server) {
		for _, n := range numbers {
			s.unknown[n] = struct{}{}
		}
	}
}

func New(logger *slog.Logger, opts ...Option) (*Server, error) {
	if err := status.ValidateTable(status.Scenarios); err != nil {
		return nil, err
	}
	s := &Server{
		table:   status.Scenarios,
		unknown: map[domain.IdentityNumber]struct{}{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Server) Register(r chi.Router) {
	r.Post("/v1/dbt-status", s.handleStatus)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.apiKey != "" && r.Header.Get("Authorization") != "Bearer "+s.apiKey {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid registry credentials"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[statusRequest](w, r, s.logger, ctx, "")
	if !ok {
		return
	}
	number, err := domain.ParseIdentityNumber(req.AadhaarNumber)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if _, missing := s.unknown[number]; missing {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no record for number"))
		return
	}

	outcome := s.lookup(number)
	s.logger.InfoContext(ctx, "registry lookup",
		"number", number,
		"passed", outcome.Passed(),
	)
	httputil.WriteJSON(w, http.StatusOK, statusResponse{
		AadhaarLinked: outcome.IdentityLinked,
		DBTEnabled:    outcome.TransferEnabled,
		NPCIMapped:    outcome.MappingComplete,
	})
}

func (s *Server) lookup(number domain.IdentityNumber) status.Outcome {
	h := fnv.New64a()
	_, _ = h.Write([]byte(number))
	seed := h.Sum64()
	sampler, err := status.NewSampler(s.table, rand.New(rand.NewPCG(seed, seed>>1)))
	if err != nil {
		return status.Outcome{}
	}
	return sampler.Draw()
}
