package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var httpMetrics = New()

func TestMiddlewareRecordsStatus(t *testing.T) {
	h := httpMetrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/checkout", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

// The wrapped writer must still expose http.Flusher or the verification
// event stream cannot flush events to the terminal.
func TestMiddlewarePreservesFlusher(t *testing.T) {
	var flusher http.Flusher
	h := httpMetrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		f, ok := w.(http.Flusher)
		require.True(t, ok, "response writer must implement http.Flusher")
		flusher = f
		w.WriteHeader(http.StatusOK)
		f.Flush()
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/verification/start", nil))

	assert.NotNil(t, flusher)
	assert.True(t, rec.Flushed)
}
