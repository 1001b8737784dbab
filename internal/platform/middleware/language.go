package middleware

import (
	"net/http"

	"dbtcheck/internal/platform/i18n"
	"dbtcheck/pkg/requestcontext"
)

// Language negotiates the display language from ?lang= and then
// Accept-Language, and stores it in the context.
func Language(catalog *i18n.Catalog) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tag := catalog.Resolve(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
			w.Header().Set("Content-Language", tag.String())
			ctx := requestcontext.WithLanguage(r.Context(), tag)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
