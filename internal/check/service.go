package check

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"dbtcheck/internal/check/metrics"
	"dbtcheck/internal/otp"
	"dbtcheck/internal/platform/i18n"
	"dbtcheck/internal/receipt"
	"dbtcheck/internal/status"
	"dbtcheck/pkg/domain"
	dErrors "dbtcheck/pkg/domain-errors"
	"dbtcheck/pkg/platform/sentinel"
	"dbtcheck/pkg/requestcontext"
)

// Store persists check sessions for their TTL.
type Store interface {
	Save(ctx context.Context, c *Check) error
	FindByID(ctx context.Context, id uuid.UUID) (*Check, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

const defaultRunTimeout = 30 * time.Second

// Service drives check sessions through the state machine.
type Service struct {
	store      Store
	verifier   status.Verifier
	catalog    *i18n.Catalog
	stager     status.Stager
	otpPolicy  otp.Policy
	newID      receipt.IDGenerator
	now        func() time.Time
	runTimeout time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics

	locks keyedMutex
	runs  sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithStager(st status.Stager) Option {
	return func(s *Service) { s.stager = st }
}

func WithOTPPolicy(p otp.Policy) Option {
	return func(s *Service) { s.otpPolicy = p }
}

func WithIDGenerator(g receipt.IDGenerator) Option {
	return func(s *Service) {
		if g != nil {
			s.newID = g
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRunTimeout bounds the verifier call plus the staged reveal.
func WithRunTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.runTimeout = d
		}
	}
}

func New(store Store, verifier status.Verifier, catalog *i18n.Catalog, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("check store is required")
	}
	if verifier == nil {
		return nil, errors.New("status verifier is required")
	}
	if catalog == nil {
		return nil, errors.New("message catalog is required")
	}
	s := &Service{
		store:      store,
		verifier:   verifier,
		catalog:    catalog,
		stager:     status.DefaultStager(),
		newID:      receipt.NewID,
		now:        time.Now,
		runTimeout: defaultRunTimeout,
		logger:     slog.Default(),
		locks:      keyedMutex{m: map[uuid.UUID]*lockEntry{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StartResult is a new session awaiting its OTP.
type StartResult struct {
	Check *Check
	// Code is the issued OTP. Callers decide whether to surface it.
	Code string
}

// Start validates raw and opens a session. Invalid input stores nothing.
func (s *Service) Start(ctx context.Context, raw string, lang language.Tag) (*StartResult, error) {
	printer := s.catalog.Printer(lang)

	number, err := domain.ParseIdentityNumber(raw)
	if err != nil {
		return nil, s.localizeValidation(err, printer)
	}

	now := requestcontext.Now(ctx)
	code, challenge, err := otp.Generate(s.otpPolicy, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue otp")
	}

	c := &Check{
		ID:         uuid.New(),
		Number:     number,
		State:      StateAwaitingOTP,
		Challenge:  challenge,
		VerifierID: s.verifier.ID(),
		Language:   printer.Tag().String(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Save(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save check")
	}

	s.metrics.IncrementStarted()
	s.logger.InfoContext(ctx, "check started",
		"request_id", requestcontext.RequestID(ctx),
		"check_id", c.ID,
		"number", number,
		"verifier", c.VerifierID,
	)
	return &StartResult{Check: c, Code: code}, nil
}

func (s *Service) localizeValidation(err error, printer *i18n.Printer) error {
	switch {
	case dErrors.HasCode(err, dErrors.CodeInvalidLength):
		s.metrics.IncrementValidationFailure(string(dErrors.CodeInvalidLength))
		return dErrors.Wrap(err, dErrors.CodeInvalidLength, printer.T("aadhaar_12_digits"))
	case dErrors.HasCode(err, dErrors.CodeInvalidPattern):
		s.metrics.IncrementValidationFailure(string(dErrors.CodeInvalidPattern))
		return dErrors.Wrap(err, dErrors.CodeInvalidPattern, printer.T("invalid_aadhaar"))
	default:
		return err
	}
}

// VerifyOTP checks code against the session challenge. On success the
// staged run starts in the background and cannot be cancelled.
func (s *Service) VerifyOTP(ctx context.Context, id uuid.UUID, code string) (*Check, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	printer := s.catalog.Printer(language.Make(c.Language))
	if c.State != StateAwaitingOTP {
		return nil, dErrors.New(dErrors.CodeInvalidState, fmt.Sprintf("check is %s, not awaiting otp", c.State))
	}

	now := requestcontext.Now(ctx)
	verr := c.Challenge.Verify(code, now)
	c.UpdatedAt = now
	switch {
	case verr == nil:
		c.State = StateRunning
	case errors.Is(verr, otp.ErrMismatch):
		s.metrics.IncrementOTPResult("mismatch")
		if err := s.store.Save(ctx, c); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save check")
		}
		return nil, dErrors.Wrap(verr, dErrors.CodeOTPMismatch, printer.T("wrong_otp"))
	case errors.Is(verr, otp.ErrExpired):
		s.metrics.IncrementOTPResult("expired")
		return nil, dErrors.Wrap(verr, dErrors.CodeOTPExpired, printer.T("otp_expired"))
	case errors.Is(verr, otp.ErrAttemptsExceeded):
		s.metrics.IncrementOTPResult("attempts_exceeded")
		return nil, dErrors.Wrap(verr, dErrors.CodeTooManyAttempts, printer.T("otp_attempts_exceeded"))
	default:
		return nil, dErrors.Wrap(verr, dErrors.CodeInvalidState, "otp cannot be verified")
	}

	if err := s.store.Save(ctx, c); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save check")
	}
	s.metrics.IncrementOTPResult("verified")
	s.logger.InfoContext(ctx, "otp verified",
		"request_id", requestcontext.RequestID(ctx),
		"check_id", c.ID,
		"attempts", c.Challenge.Attempts,
	)

	s.runs.Add(1)
	go s.run(context.WithoutCancel(ctx), c.ID, c.Number)
	return c, nil
}

// run obtains the outcome and reveals it. It is the only writer of a
// running session.
func (s *Service) run(parent context.Context, id uuid.UUID, number domain.IdentityNumber) {
	defer s.runs.Done()
	s.metrics.RunStarted()
	defer s.metrics.RunFinished()

	ctx, cancel := context.WithTimeout(parent, s.runTimeout)
	defer cancel()
	start := s.now()

	outcome, err := s.verifier.Verify(ctx, number)
	if err != nil {
		s.logger.ErrorContext(ctx, "status verification failed",
			"check_id", id,
			"verifier", s.verifier.ID(),
			"category", status.GetCategory(err),
			"error", err,
		)
		s.fail(ctx, id, string(status.GetCategory(err)))
		return
	}
	if err := s.update(ctx, id, func(c *Check) {
		c.Outcome = &outcome
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to record outcome", "check_id", id, "error", err)
		return
	}

	err = s.stager.Run(ctx, outcome, func(r status.Reveal) {
		uerr := s.update(ctx, id, func(c *Check) {
			now := s.now()
			c.Revealed = append(c.Revealed, Revealed{Field: r.Field, Value: r.Value, RevealedAt: now})
			c.Step = r.Step
			if r.Step < len(status.Fields) {
				return
			}
			rc := receipt.Build(receipt.Input{
				ID:         s.newID(now),
				IssuedAt:   now,
				Number:     c.Number,
				Outcome:    outcome,
				Translator: s.catalog.Printer(language.Make(c.Language)),
			})
			c.Receipt = &rc
			c.State = StateComplete
			s.metrics.IncrementOutcome(string(rc.Tier), c.VerifierID)
		})
		if uerr != nil {
			s.logger.ErrorContext(ctx, "failed to record reveal",
				"check_id", id,
				"step", r.Step,
				"error", uerr,
			)
		}
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "staged reveal interrupted", "check_id", id, "error", err)
		s.fail(ctx, id, string(dErrors.CodeTimeout))
		return
	}

	s.metrics.ObserveRunDuration(s.now().Sub(start))
	s.logger.InfoContext(ctx, "check complete",
		"check_id", id,
		"passed", outcome.Passed(),
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)
}

func (s *Service) fail(ctx context.Context, id uuid.UUID, reason string) {
	err := s.update(ctx, id, func(c *Check) {
		c.State = StateFailed
		c.Failure = reason
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to mark check failed", "check_id", id, "error", err)
	}
}

func (s *Service) update(ctx context.Context, id uuid.UUID, mutate func(*Check)) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	mutate(c)
	c.UpdatedAt = s.now()
	return s.store.Save(ctx, c)
}

// Get returns the current session.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Check, error) {
	return s.load(ctx, id)
}

// Receipt returns the receipt of a complete check.
func (s *Service) Receipt(ctx context.Context, id uuid.UUID) (*Check, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.State != StateComplete || c.Receipt == nil {
		return nil, dErrors.New(dErrors.CodeInvalidState, "receipt is available once the check is complete")
	}
	return c, nil
}

// Discard drops a session. Running checks cannot be discarded.
func (s *Service) Discard(ctx context.Context, id uuid.UUID) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !c.Discardable() {
		return dErrors.New(dErrors.CodeInvalidState, "a running check cannot be discarded")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return translateStoreError(err)
	}
	s.logger.InfoContext(ctx, "check discarded",
		"request_id", requestcontext.RequestID(ctx),
		"check_id", id,
		"state", c.State,
	)
	return nil
}

// Wait blocks until every background run has finished.
func (s *Service) Wait() {
	s.runs.Wait()
}

func (s *Service) load(ctx context.Context, id uuid.UUID) (*Check, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return c, nil
}

func translateStoreError(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "check not found")
	case errors.Is(err, sentinel.ErrExpired):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "check expired")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "check store failure")
	}
}
