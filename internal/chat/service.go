package chat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"dbtcheck/internal/chat/metrics"
	dErrors "dbtcheck/pkg/domain-errors"
)

// Generator produces a reply for a fully built prompt.
type Generator interface {
	Generate(ctx context.Context, p Profile, prompt string) (string, error)
}

const defaultMaxConcurrent = 16

// Request is one user send.
type Request struct {
	ConversationID string
	Profile        Profile
	Message        string
	History        []Turn
}

// Reply is what the chat window shows. OK is false when Text is an error notice.
type Reply struct {
	Text     string
	OK       bool
	Category Category
}

// Service proxies chat sends to the generator. It allows one outstanding send
// per conversation and bounds concurrent upstream calls.
type Service struct {
	generator Generator
	slots     *semaphore.Weighted
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu       sync.Mutex
	inFlight map[string]struct{}
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

// WithMaxConcurrent bounds simultaneous upstream calls across conversations.
func WithMaxConcurrent(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.slots = semaphore.NewWeighted(n)
		}
	}
}

func New(generator Generator, opts ...Option) (*Service, error) {
	if generator == nil {
		return nil, errors.New("chat generator is required")
	}
	s := &Service{
		generator: generator,
		slots:     semaphore.NewWeighted(defaultMaxConcurrent),
		logger:    slog.Default(),
		inFlight:  map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send forwards req upstream. Upstream failures are not errors: they come back
// as a Reply with OK=false and the user-facing notice. Errors are reserved for
// a concurrent send on the same conversation and for a caller that gave up
// before a slot freed.
func (s *Service) Send(ctx context.Context, req Request) (*Reply, error) {
	if req.ConversationID != "" {
		if !s.begin(req.ConversationID) {
			return nil, dErrors.New(dErrors.CodeConflict, "a message is already being sent in this conversation")
		}
		defer s.end(req.ConversationID)
	}

	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "chat is busy, please try again")
	}
	defer s.slots.Release(1)

	s.metrics.IncrementInFlight()
	defer s.metrics.DecrementInFlight()

	start := time.Now()
	text, err := s.generator.Generate(ctx, req.Profile, BuildPrompt(req.Profile, req.History, req.Message))
	s.metrics.ObserveUpstream(req.Profile.Name, start)
	if err != nil {
		category := GetCategory(err)
		s.logger.WarnContext(ctx, "chat upstream failed",
			"profile", req.Profile.Name,
			"category", category,
			"error", err,
		)
		s.metrics.IncrementRequest(req.Profile.Name, string(category))
		return &Reply{Text: UserMessage(err), Category: category}, nil
	}

	s.metrics.IncrementRequest(req.Profile.Name, "ok")
	return &Reply{Text: text, OK: true}, nil
}

func (s *Service) begin(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Service) end(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}
