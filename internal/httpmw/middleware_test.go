package httpmw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestChain_ScopedLoggerAndAccessLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	var seen string
	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestID(r.Context())
			Logger(r.Context()).Info("inside")
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte("no"))
		}),
		WithRequestID(zap.New(core)),
		WithAccessLog,
		WithRecover,
	)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.7, 10.0.0.1")
	req.Header.Set("X-User-Email", " Ann@X.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	inside := logs.FilterMessage("inside").All()
	require.Len(t, inside, 1)
	assert.Equal(t, seen, inside[0].ContextMap()["request_id"])

	access := logs.FilterMessage("http_request").All()
	require.Len(t, access, 1)
	assert.Equal(t, zapcore.WarnLevel, access[0].Level)
	f := access[0].ContextMap()
	assert.Equal(t, int64(http.StatusConflict), f["status"])
	assert.Equal(t, int64(2), f["bytes"])
	assert.Equal(t, "10.0.0.7", f["remote_ip"])
	assert.Equal(t, "ann@x.com", f["user"])
	assert.Equal(t, seen, f["request_id"])
}

func TestWithRequestID_KeepsIncoming(t *testing.T) {
	h := WithRequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
}

func TestWithAccessLog_SkipsProbes(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	h := Chain(http.NotFoundHandler(), WithRequestID(zap.New(core)), WithAccessLog)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Zero(t, logs.Len())
}

func TestWithRecover(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") }),
		WithRequestID(zap.New(core)),
		WithRecover,
	)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("panic_recovered").Len())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/page", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}
