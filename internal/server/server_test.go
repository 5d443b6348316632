package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/heartrisk/internal/metrics"
	"github.com/abhisek/heartrisk/internal/model"
	"github.com/abhisek/heartrisk/internal/predict"
	"github.com/abhisek/heartrisk/internal/session"
	"github.com/abhisek/heartrisk/internal/store"
	"github.com/abhisek/heartrisk/internal/xgb/xgbtest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	srv     *Server
	events  store.EventRepo
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, src model.Source) *fixture {
	t.Helper()
	st, err := store.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	m := metrics.New()
	events := st.EventRepo()
	srv := New(Options{
		Model:       src,
		Adapter:     predict.New(src, predict.WithObserver(m)),
		Sessions:    session.NewRegistry(),
		Events:      events,
		Metrics:     m,
		Version:     "test",
		CORSOrigins: []string{"*"},
	})
	return &fixture{srv: srv, events: events, metrics: m}
}

func heartModel(t *testing.T) model.Source {
	t.Helper()
	path := xgbtest.WriteJSON(t, t.TempDir(), "xgb_model.json", xgbtest.HeartModel())
	return model.NewCache(model.Load, nil).Handle(path)
}

func missingModel(t *testing.T) model.Source {
	t.Helper()
	return model.NewCache(model.Load, nil).Handle(filepath.Join(t.TempDir(), "xgb_model.bin"))
}

type panicBooster struct{}

func (panicBooster) Predict([]float64) ([]float64, error) { panic("bad shape") }
func (panicBooster) NumFeatures() int                     { return 7 }

type staticSource struct{ b model.Booster }

func (s staticSource) Get() (model.Booster, error) { return s.b, nil }
func (s staticSource) Path() string                { return "static" }

func (f *fixture) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	t.Run("loaded", func(t *testing.T) {
		f := newFixture(t, heartModel(t))
		rec := f.do(t, http.MethodGet, "/health", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, true, body["model"].(map[string]any)["loaded"])
	})

	t.Run("missing model", func(t *testing.T) {
		f := newFixture(t, missingModel(t))
		rec := f.do(t, http.MethodGet, "/health", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "degraded", body["status"])
		st := body["model"].(map[string]any)
		assert.Equal(t, false, st["loaded"])
		assert.Contains(t, st["error"], "no such file")
	})
}

func TestOptions(t *testing.T) {
	f := newFixture(t, heartModel(t))
	rec := f.do(t, http.MethodGet, "/api/v1/options", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Len(t, body["catalogs"], 8)
	assert.Len(t, body["examples"], 2)
	assert.Equal(t, []any{"thall", "caa", "cp", "oldpeak", "exng", "chol", "thalachh"}, body["columns"])
	assert.Equal(t, 0.5, body["threshold"])
}

func TestDecode(t *testing.T) {
	f := newFixture(t, heartModel(t))
	tests := []struct {
		name   string
		body   string
		status int
		code   float64
	}{
		{"label with code", `{"value":"Reversible defect (3)","default":2}`, 200, 3},
		{"integer passes through", `{"value":1,"default":0}`, 200, 1},
		{"no digits", `{"value":"Flat","default":7}`, 200, 7},
		{"catalog label", `{"value":"Yes","default":0,"field":"exng"}`, 200, 1},
		{"unknown field", `{"value":"Yes","default":0,"field":"mood"}`, 400, 0},
		{"bad value type", `{"value":true,"default":0}`, 400, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/decode", tt.body, nil)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == 200 {
				assert.Equal(t, tt.code, decodeBody(t, rec)["code"])
			}
		})
	}
}

func TestPredictExamples(t *testing.T) {
	f := newFixture(t, heartModel(t))

	low := f.do(t, http.MethodPost, "/api/v1/predict", `{"example":"Low risk example"}`, nil)
	require.Equal(t, http.StatusOK, low.Code, low.Body.String())
	body := decodeBody(t, low)
	assert.Equal(t, false, body["high_risk"])
	assert.Equal(t, predict.LowRiskLabel, body["risk_label"])
	assert.InDelta(t, 1.0, body["prob_event"].(float64)+body["prob_no_event"].(float64), 1e-9)
	sessionID := low.Header().Get(SessionHeader)
	assert.True(t, session.ValidID(sessionID))
	assert.Equal(t, sessionID, body["session_id"])

	high := f.do(t, http.MethodPost, "/api/v1/predict",
		`{"example":"High risk example","thall":"Reversible defect (3)","caa":2}`,
		http.Header{SessionHeader: {sessionID}})
	require.Equal(t, http.StatusOK, high.Code, high.Body.String())
	body = decodeBody(t, high)
	assert.Equal(t, true, body["high_risk"])
	assert.Equal(t, predict.HighRiskLabel, body["risk_label"])
	assert.Equal(t, sessionID, high.Header().Get(SessionHeader))
	assert.Equal(t, map[string]any{
		"thall": 3.0, "caa": 2.0, "cp": 3.0, "oldpeak": 3.0, "exng": 1.0, "chol": 300.0, "thalachh": 120.0,
	}, body["record"])
}

func TestPredictSessionDownloadAndClear(t *testing.T) {
	f := newFixture(t, heartModel(t))

	rec := f.do(t, http.MethodPost, "/api/v1/predict", `{"example":"Low risk example"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(SessionHeader)

	dl := f.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/input.json", nil, nil)
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Equal(t, `attachment; filename="input.json"`, dl.Header().Get("Content-Disposition"))
	assert.Equal(t, `{"thall":2,"caa":0,"cp":0,"oldpeak":0,"exng":0,"chol":180,"thalachh":150}`, dl.Body.String())

	del := f.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil, nil)
	assert.Equal(t, http.StatusNoContent, del.Code)

	dl = f.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/input.json", nil, nil)
	assert.Equal(t, http.StatusNotFound, dl.Code)

	unknown := f.do(t, http.MethodDelete, "/api/v1/sessions/"+session.NewID(), nil, nil)
	assert.Equal(t, http.StatusNotFound, unknown.Code)
}

func TestPredictRejectsOutOfBounds(t *testing.T) {
	f := newFixture(t, heartModel(t))
	rec := f.do(t, http.MethodPost, "/api/v1/predict", `{"age":0,"chol":900,"caa":7}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	var fields []string
	for _, fe := range body["fields"].([]any) {
		fields = append(fields, fe.(map[string]any)["field"].(string))
	}
	assert.Equal(t, []string{"age", "chol", "caa"}, fields)
}

func TestPredictBadRequests(t *testing.T) {
	f := newFixture(t, heartModel(t))
	for name, body := range map[string]string{
		"malformed json":  `{"age":`,
		"unknown example": `{"example":"Medium risk example"}`,
		"label type":      `{"cp":{"code":3}}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/v1/predict", body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPredictModelUnavailable(t *testing.T) {
	f := newFixture(t, missingModel(t))
	rec := f.do(t, http.MethodPost, "/api/v1/predict", `{}`, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, ModelNotLoadedMessage, body["error"])
	assert.Equal(t, "ModelUnavailable", body["kind"])
}

func TestPredictInferenceFailure(t *testing.T) {
	f := newFixture(t, staticSource{b: panicBooster{}})
	rec := f.do(t, http.MethodPost, "/api/v1/predict", `{}`, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "InferenceFailure", body["kind"])
	assert.Contains(t, body["detail"], "bad shape")
}

func TestHistory(t *testing.T) {
	f := newFixture(t, heartModel(t))
	for _, ex := range []string{"Low risk example", "High risk example", "Low risk example"} {
		rec := f.do(t, http.MethodPost, "/api/v1/predict", `{"example":"`+ex+`"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := f.do(t, http.MethodGet, "/api/v1/history?limit=2", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decodeBody(t, rec)["events"].([]any)
	require.Len(t, events, 2)
	newest := events[0].(map[string]any)
	assert.Equal(t, false, newest["high_risk"])
	assert.Equal(t, true, newest["success"])
	assert.Equal(t, true, events[1].(map[string]any)["high_risk"])

	bad := f.do(t, http.MethodGet, "/api/v1/history?limit=zero", nil, nil)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestHistoryRecordsFailures(t *testing.T) {
	f := newFixture(t, missingModel(t))
	f.do(t, http.MethodPost, "/api/v1/predict", `{}`, nil)

	rec := f.do(t, http.MethodGet, "/api/v1/history", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	events := decodeBody(t, rec)["events"].([]any)
	require.Len(t, events, 1)
	ev := events[0].(map[string]any)
	assert.Equal(t, false, ev["success"])
	assert.Contains(t, ev["error"], "model unavailable")
}

func TestHistoryDisabled(t *testing.T) {
	src := heartModel(t)
	srv := New(Options{Model: src, Adapter: predict.New(src)})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// No metrics configured, no /metrics route.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, heartModel(t))
	f.do(t, http.MethodPost, "/api/v1/predict", `{"example":"High risk example"}`, nil)
	f.do(t, http.MethodGet, "/health", nil, nil)

	rec := f.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `heartrisk_predictions_total{risk="high"} 1`)
	assert.Contains(t, rec.Body.String(), "heartrisk_model_loaded 1")
}

func TestCORS(t *testing.T) {
	f := newFixture(t, heartModel(t))
	rec := f.do(t, http.MethodGet, "/health", nil, http.Header{"Origin": {"https://example.org"}})
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPredictErrorFallback(t *testing.T) {
	f := newFixture(t, heartModel(t))
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	f.srv.predictError(c, errors.New("context canceled"))
	assert.Equal(t, http.StatusInternalServerError, c.Writer.Status())
}

func TestSweepInterval(t *testing.T) {
	tests := []struct {
		ttl  time.Duration
		want time.Duration
	}{
		{time.Nanosecond, time.Second},
		{3 * time.Nanosecond, time.Second},
		{2 * time.Second, time.Second},
		{time.Minute, 15 * time.Second},
		{24 * time.Hour, 6 * time.Hour},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sweepInterval(tt.ttl), tt.ttl.String())
	}
}

func TestExpireSessionsTinyTTL(t *testing.T) {
	srv := New(Options{Sessions: session.NewRegistry()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.expireSessions(ctx, time.Nanosecond)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expireSessions did not return after cancel")
	}
}
