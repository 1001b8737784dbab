package handler

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"dbtcheck/internal/chat"
	"dbtcheck/pkg/testutil"
)

// HandlerSuite runs the handler against the real service and Gemini client,
// with a scripted upstream behind httptest.
type HandlerSuite struct {
	suite.Suite
	router   http.Handler
	upstream *httptest.Server
	calls    atomic.Int32
	statuses []int
	lastBody string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.calls.Store(0)
	s.statuses = []int{http.StatusOK}
	s.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(s.calls.Add(1))
		body, _ := io.ReadAll(r.Body)
		s.lastBody = string(body)
		status := s.statuses[min(n, len(s.statuses))-1]
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"DBT sends benefits straight to your account."}]}}]}`)
		}
	}))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	client := chat.NewGeminiClient("k",
		chat.WithBaseURL(s.upstream.URL),
		chat.WithBackoff(10*time.Millisecond, 10*time.Millisecond),
		chat.WithClientLogger(logger),
	)
	svc, err := chat.New(client, chat.WithLogger(logger))
	s.Require().NoError(err)

	r := chi.NewRouter()
	New(svc, logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.upstream.Close()
}

func (s *HandlerSuite) send(body any) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/chat", body))
}

// =============================================================================
// Successful sends
// =============================================================================

func (s *HandlerSuite) TestSendReturnsReply() {
	rr := s.send(SendRequest{
		ConversationID: "conv-1",
		Message:        "  What is DBT?  ",
		History:        []chat.Turn{{Role: chat.RoleAssistant, Text: "Namaste"}},
	})

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[SendResponse](s.T(), rr)
	s.True(resp.OK)
	s.Equal("DBT sends benefits straight to your account.", resp.Reply)
	s.Equal(chat.ProfileWidget, resp.Profile)
	s.Empty(resp.Category)
	s.Contains(s.lastBody, `Assistant: Namaste\n\nUser: What is DBT?\n\nAssistant:`)
}

func (s *HandlerSuite) TestAssistantProfile() {
	rr := s.send(SendRequest{Profile: "assistant", Message: "scholarship"})

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[SendResponse](s.T(), rr)
	s.Equal(chat.ProfileAssistant, resp.Profile)
	s.Contains(s.lastBody, `"maxOutputTokens":1024`)
	s.Contains(s.lastBody, "HARM_CATEGORY_HATE_SPEECH")
}

func (s *HandlerSuite) TestServerErrorThenSuccessRetriesOnce() {
	s.statuses = []int{http.StatusInternalServerError, http.StatusOK}

	rr := s.send(SendRequest{Message: "hello"})

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[SendResponse](s.T(), rr)
	s.True(resp.OK)
	s.Equal(int32(2), s.calls.Load())
}

// =============================================================================
// Failures
// =============================================================================

func (s *HandlerSuite) TestUpstreamFailureIsReturnedAsNotice() {
	s.statuses = []int{http.StatusForbidden}

	rr := s.send(SendRequest{Message: "hello"})

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[SendResponse](s.T(), rr)
	s.False(resp.OK)
	s.Equal("⚠️ API Error (403): Please try again.", resp.Reply)
	s.Equal(string(chat.CategoryStatus), resp.Category)
}

func (s *HandlerSuite) TestValidation() {
	tests := []struct {
		name string
		body any
	}{
		{"blank message", SendRequest{Message: "   "}},
		{"message too long", SendRequest{Message: strings.Repeat("a", maxMessageRunes+1)}},
		{"unknown profile", SendRequest{Profile: "oracle", Message: "hi"}},
		{"bad history role", SendRequest{Message: "hi", History: []chat.Turn{{Role: "system", Text: "x"}}}},
		{"history too long", SendRequest{Message: "hi", History: make([]chat.Turn, maxHistoryTurns+1)}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rr := s.send(tt.body)
			testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
		})
	}
	s.Equal(int32(0), s.calls.Load(), "invalid sends never reach the upstream")
}

func (s *HandlerSuite) TestMalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")

	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}
