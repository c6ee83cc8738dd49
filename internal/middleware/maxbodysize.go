package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// tooLargeBody matches the API error envelope so clients see one shape
// whether the limit trips here or inside a handler's decode.
const tooLargeBody = `{"error":{"code":"request_too_large","message":"request body exceeds ` + "%s" + ` bytes"}}`

// NewMaxBodySizeHandler limits request bodies to limit bytes. A request
// advertising a larger Content-Length is rejected with 413 before it reaches
// next. Other bodies are wrapped in http.MaxBytesReader, so a decode past
// the limit fails with *http.MaxBytesError and the handler answers 413.
// Bodiless requests such as the live upgrade pass untouched.
func NewMaxBodySizeHandler(limit int64) func(http.Handler) http.Handler {
	msg := []byte(strings.Replace(tooLargeBody, "%s", strconv.FormatInt(limit, 10), 1))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				w.Write(msg) //nolint:errcheck
				return
			}
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
