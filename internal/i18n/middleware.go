package i18n

import "net/http"

// Middleware attaches a localizer for the server's configured language to
// every request. The language is fixed at startup; the API does not negotiate
// per-request via Accept-Language.
func Middleware(lang string) func(http.Handler) http.Handler {
	loc := NewLocalizer(lang)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithLocalizer(r.Context(), loc)))
		})
	}
}
