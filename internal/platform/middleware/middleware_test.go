package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"dbtcheck/internal/platform/i18n"
	"dbtcheck/internal/platform/metrics"
	"dbtcheck/pkg/requestcontext"
	"dbtcheck/pkg/testutil"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.RequestID(r.Context())
	}))

	t.Run("mints an id", func(t *testing.T) {
		rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
	})

	t.Run("reuses caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rr := testutil.DoRequest(h, req)
		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))
	})

	t.Run("replaces oversized id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
		testutil.DoRequest(h, req)
		assert.Len(t, seen, 36)
	})
}

func TestRecovery(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))

	testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "internal_error")
	assert.Contains(t, logs.String(), "panic recovered")
}

func TestLogger(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	h := RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/checks", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(logs.Bytes(), &entry))
	assert.Equal(t, "http request", entry["msg"])
	assert.InDelta(t, http.StatusTeapot, entry["status"], 0)
	assert.Equal(t, "/checks", entry["path"])
	assert.NotEmpty(t, entry["request_id"])
}

func TestTimeout(t *testing.T) {
	h := Timeout(10 * time.Millisecond)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))

	testutil.AssertStatusAndError(t, rr, http.StatusGatewayTimeout, "timeout")
}

func TestTimeout_HandlerThatAnsweredIsUntouched(t *testing.T) {
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestContentTypeJSON(t *testing.T) {
	h := ContentTypeJSON(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	form := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("a=b"))
	form.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusUnsupportedMediaType, testutil.DoRequest(h, form).Code)

	jsonReq := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("{}"))
	jsonReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	assert.Equal(t, http.StatusNoContent, testutil.DoRequest(h, jsonReq).Code)

	get := httptest.NewRequest(http.MethodGet, "/checks/x", nil)
	assert.Equal(t, http.StatusNoContent, testutil.DoRequest(h, get).Code)
}

func TestClientIPFromRequest(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.50 "})
	require.NoError(t, err)

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"untrusted peer ignores forwarded for", map[string]string{"X-Forwarded-For": "198.51.100.7"}, "203.0.113.4:1234", "203.0.113.4"},
		{"untrusted peer ignores real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "203.0.113.4:1234", "203.0.113.4"},
		{"trusted proxy", map[string]string{"X-Forwarded-For": "203.0.113.5"}, "10.0.0.2:1234", "203.0.113.5"},
		{"spoofed left hops are skipped", map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.5, 10.1.1.1"}, "10.0.0.2:1234", "203.0.113.5"},
		{"all hops trusted", map[string]string{"X-Forwarded-For": "10.9.9.9, 10.1.1.1"}, "10.0.0.2:1234", "10.9.9.9"},
		{"trusted single address", map[string]string{"X-Real-IP": " 198.51.100.9 "}, "192.0.2.50:80", "198.51.100.9"},
		{"trusted proxy without headers", nil, "10.0.0.2:1234", "10.0.0.2"},
		{"remote v6", nil, "[2001:db8::1]:443", "2001:db8::1"},
		{"remote without port", nil, "192.0.2.1", "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(req, trusted))
		})
	}
}

func TestClientIPFromRequest_TrustsNobodyByDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")

	assert.Equal(t, "10.0.0.2", ClientIPFromRequest(req, nil))
}

func TestParseTrustedProxies(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", "::ffff:192.0.2.1", ""})
	require.NoError(t, err)
	assert.True(t, trusted.Contains("10.200.0.1"))
	assert.True(t, trusted.Contains("192.0.2.1"))
	assert.False(t, trusted.Contains("192.0.2.2"))
	assert.False(t, trusted.Contains("not-an-ip"))

	_, err = ParseTrustedProxies([]string{"proxy.local"})
	assert.Error(t, err)
}

func TestClientMetadata(t *testing.T) {
	var ip, ua string
	h := ClientMetadata(nil)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		ua = requestcontext.UserAgent(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:80"
	req.Header.Set("User-Agent", "kiosk/1.0")
	req.Header.Set("X-Forwarded-For", "198.51.100.1")

	testutil.DoRequest(h, req)

	assert.Equal(t, "192.0.2.7", ip)
	assert.Equal(t, "kiosk/1.0", ua)
}

func TestLanguage(t *testing.T) {
	catalog := i18n.MustLoad()
	var got language.Tag
	h := Language(catalog)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = requestcontext.Language(r.Context())
	}))

	t.Run("query wins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?lang=en", nil)
		req.Header.Set("Accept-Language", "hi")
		rr := testutil.DoRequest(h, req)
		assert.Equal(t, language.English, got)
		assert.Equal(t, "en", rr.Header().Get("Content-Language"))
	})

	t.Run("accept-language", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		testutil.DoRequest(h, req)
		assert.Equal(t, language.English, got)
	})

	t.Run("defaults to hindi", func(t *testing.T) {
		testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, language.Hindi, got)
	})
}

func TestLatencyMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg, reg)

	r := chi.NewRouter()
	r.Use(LatencyMiddleware(m))
	r.Get("/checks/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	testutil.DoRequest(r, httptest.NewRequest(http.MethodGet, "/checks/abc", nil))

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range families {
		if mf.GetName() != "dbtcheck_http_requests_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range metric.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["route"] == "/checks/{id}" && labels["status"] == "200" {
				found = true
				assert.InDelta(t, 1, metric.GetCounter().GetValue(), 0)
			}
		}
	}
	assert.True(t, found, "request counted under the route pattern")
}

func TestTimeout_ContextCarriesDeadline(t *testing.T) {
	var deadline bool
	h := Timeout(time.Minute)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, deadline = r.Context().Deadline()
	}))
	testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background()))
	assert.True(t, deadline)
}
