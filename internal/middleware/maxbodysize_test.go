package middleware_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/travel-karte/internal/middleware"
)

// decodingHandler decodes a karte-shaped body the way the API handlers do,
// answering 413 when the body limit trips and 200 otherwise.
var decodingHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Memo string `json:"memo"`
	}
	b, err := io.ReadAll(r.Body)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}
	if err := json.Unmarshal(b, &body); err != nil {
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}
	w.WriteHeader(http.StatusOK)
})

func karteBody(memoLen int) string {
	return `{"memo":"` + strings.Repeat("メ", memoLen) + `"}`
}

func TestMaxBodySizeHandler(t *testing.T) {
	const limit = 256
	tests := []struct {
		name          string
		body          string
		contentLength int64 // 0 keeps httptest's computed length; -1 means streamed
		want          int
	}{
		{"small save passes", karteBody(10), 0, http.StatusOK},
		{"declared length over limit is rejected early", karteBody(200), 0, http.StatusRequestEntityTooLarge},
		{"streamed body over limit fails in decode", karteBody(200), -1, http.StatusRequestEntityTooLarge},
		{"streamed body under limit passes", karteBody(10), -1, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := middleware.NewMaxBodySizeHandler(limit)(decodingHandler)
			req := httptest.NewRequest(http.MethodPut, "/kartes/0b7e6c1e-2f9a-4c67-9a55-5d1f7b6f2c11", strings.NewReader(tc.body))
			if tc.contentLength != 0 {
				req.ContentLength = tc.contentLength
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestMaxBodySizeHandler_EarlyRejectUsesErrorEnvelope(t *testing.T) {
	h := middleware.NewMaxBodySizeHandler(16)(decodingHandler)
	req := httptest.NewRequest(http.MethodPost, "/kartes", strings.NewReader(karteBody(40)))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "request_too_large", got.Error.Code)
	assert.Contains(t, got.Error.Message, "16 bytes")
}

func TestMaxBodySizeHandler_BodilessRequestUntouched(t *testing.T) {
	var body io.ReadCloser
	h := middleware.NewMaxBodySizeHandler(16)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body = r.Body
	}))
	req := httptest.NewRequest(http.MethodGet, "/kartes/0b7e6c1e-2f9a-4c67-9a55-5d1f7b6f2c11/live", nil)

	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, http.NoBody, body)
}
