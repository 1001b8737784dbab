package testutil

import (
	"net/http"
	"time"

	"golang.org/x/text/language"

	"dbtcheck/pkg/requestcontext"
)

// WithLanguage sets the negotiated language the Language middleware would set.
func WithLanguage(req *http.Request, tag language.Tag) *http.Request {
	return req.WithContext(requestcontext.WithLanguage(req.Context(), tag))
}

// WithRequestID sets a request ID as the RequestID middleware would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithTime pins the request time.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
