package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	method, path string
	status       int
}

type fakeRecorder struct{ reqs []recordedRequest }

func (f *fakeRecorder) RecordHTTPRequest(method, path string, statusCode int, _ time.Duration) {
	f.reqs = append(f.reqs, recordedRequest{method, path, statusCode})
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	rec := &fakeRecorder{}
	r := chi.NewRouter()
	r.Use(Metrics(rec))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	for _, id := range []string{"1", "2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Len(t, rec.reqs, 3)
	assert.Equal(t, recordedRequest{"GET", "/items/{id}", http.StatusAccepted}, rec.reqs[0])
	assert.Equal(t, rec.reqs[0], rec.reqs[1])
	assert.Equal(t, http.StatusNotFound, rec.reqs[2].status)
	assert.Equal(t, "unmatched", rec.reqs[2].path)
}
