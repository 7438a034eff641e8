package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecordingProvider() (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	return sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)), recorder
}

func TestTracing_Success(t *testing.T) {
	tp, recorder := newRecordingProvider()

	handler := Tracing(tp)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /test", spans[0].Name())
}

func TestTracing_WithChiRoutePattern(t *testing.T) {
	tp, recorder := newRecordingProvider()

	r := chi.NewRouter()
	r.Use(Tracing(tp))
	r.Post("/api/v1/counters/{name}/increment", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/counters/hits/increment", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /api/v1/counters/{name}/increment", spans[0].Name())
}

func TestTracing_SpanVisibleToHandler(t *testing.T) {
	tp, _ := newRecordingProvider()

	var sampled bool
	handler := Tracing(tp)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sampled = traceSpanFromRequest(r)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.True(t, sampled)
}

func TestTracing_NilProviderUsesGlobal(t *testing.T) {
	handler := Tracing(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func traceSpanFromRequest(r *http.Request) bool {
	return trace.SpanFromContext(r.Context()).SpanContext().IsSampled()
}
