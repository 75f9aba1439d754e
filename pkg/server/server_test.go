package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/kdeps/kxlate/pkg/errors"
	"github.com/kdeps/kxlate/pkg/history"
	"github.com/kdeps/kxlate/pkg/intake"
	"github.com/kdeps/kxlate/pkg/ktx"
	"github.com/kdeps/kxlate/pkg/logging"
	"github.com/kdeps/kxlate/pkg/metrics"
	"github.com/kdeps/kxlate/pkg/pipeline"
	"github.com/kdeps/kxlate/pkg/translate"
)

type fakeRunner struct {
	jobs    []intake.Job
	modes   []translate.Mode
	ctxs    []context.Context
	result  pipeline.Result
	err     error
	panics  bool
	enabled map[translate.Mode]bool
}

func (f *fakeRunner) Run(ctx context.Context, job intake.Job, mode translate.Mode) (pipeline.Result, error) {
	if f.panics {
		panic("kaboom")
	}
	f.ctxs = append(f.ctxs, ctx)
	f.jobs = append(f.jobs, job)
	f.modes = append(f.modes, mode)
	return f.result, f.err
}

func (f *fakeRunner) Supports(mode translate.Mode) bool {
	if f.enabled == nil {
		return true
	}
	return f.enabled[mode]
}

type fakeHistory struct {
	entries map[string]history.Entry
}

func (f *fakeHistory) Get(_ context.Context, id string) (history.Entry, error) {
	e, ok := f.entries[id]
	if !ok {
		return history.Entry{}, history.ErrNotFound
	}
	return e, nil
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]history.Entry, error) {
	out := []history.Entry{}
	for _, e := range f.entries {
		if len(out) == limit {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(runner Runner, hist HistoryReader) *Server {
	return New(Config{DefaultOutputBucket: "out"}, runner, hist, logging.NewTestLogger())
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var decoded map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func envelopeBody(t *testing.T) string {
	t.Helper()
	body, err := intake.EncodeEnvelope(intake.Job{SourceBucket: "in", SourceObject: "call_42.txt"})
	require.NoError(t, err)
	return string(body)
}

func TestTranslateSuccess(t *testing.T) {
	runner := &fakeRunner{result: pipeline.Result{
		JobID:          "job-1",
		SourceLanguage: "fr",
		Targets:        []string{"eng_Latn", "spa_Latn"},
		OutputFiles:    []string{"translations_accuracy_mode/call_42.txt_eng_Latn.json", "translations_accuracy_mode/call_42.txt_spa_Latn.json"},
		State:          pipeline.StateDone,
	}}
	s := newTestServer(runner, nil)

	w, body := do(t, s, http.MethodPost, "/translate", envelopeBody(t))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Translations completed and uploaded for call_42.txt", body["message"])
	assert.Equal(t, []any{"eng_Latn", "spa_Latn"}, body["output_files"])
	assert.Equal(t, "job-1", body["jobId"])
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	require.Len(t, runner.jobs, 1)
	assert.Equal(t, intake.Job{SourceBucket: "in", SourceObject: "call_42.txt", OutputBucket: intake.DefaultOutputBucket}, runner.jobs[0])
	assert.Equal(t, translate.ModeAccuracy, runner.modes[0])
}

func TestRoutesSelectMode(t *testing.T) {
	runner := &fakeRunner{}
	s := New(Config{DefaultMode: translate.ModeRealignment}, runner, nil, logging.NewTestLogger())

	for _, path := range []string{"/translate_realignment", "/", "/translate"} {
		w, _ := do(t, s, http.MethodPost, path, `{"bucket":"in","name":"a.txt"}`)
		require.Equal(t, http.StatusOK, w.Code, path)
	}
	assert.Equal(t, []translate.Mode{translate.ModeRealignment, translate.ModeRealignment, translate.ModeAccuracy}, runner.modes)
	assert.Equal(t, intake.DefaultOutputBucket, runner.jobs[0].OutputBucket)
}

func TestInvalidEventFormat(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer(runner, nil)

	w, body := do(t, s, http.MethodPost, "/translate", `{"message":{"attributes":{}}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid event format", body["error"])
	assert.Equal(t, string(kerrors.ErrInvalidJobFormat), body["code"])
	assert.Empty(t, runner.jobs)
}

func TestPipelineFailure(t *testing.T) {
	runner := &fakeRunner{
		result: pipeline.Result{JobID: "job-2", State: pipeline.StateFailed},
		err:    kerrors.NewFetchError("in", "call_42.txt", errors.New("object not found")),
	}
	s := newTestServer(runner, nil)

	w, body := do(t, s, http.MethodPost, "/translate", envelopeBody(t))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, body["error"], "object not found")
	assert.Equal(t, "FETCH_FAILED", body["code"])
	assert.Equal(t, "job-2", body["jobId"])
}

func TestPanicIsRecovered(t *testing.T) {
	s := newTestServer(&fakeRunner{panics: true}, nil)

	w, body := do(t, s, http.MethodPost, "/translate", envelopeBody(t))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, body["error"], "kaboom")
}

func TestDisabledMode(t *testing.T) {
	runner := &fakeRunner{enabled: map[translate.Mode]bool{translate.ModeAccuracy: true}}
	s := newTestServer(runner, nil)

	w, _ := do(t, s, http.MethodPost, "/translate_realignment", envelopeBody(t))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeRunner{}, nil)
	w, body := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "accuracy", body["mode"])

	w, _ = do(t, s, http.MethodGet, "/jobs/abc", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestJobsRoutes(t *testing.T) {
	hist := &fakeHistory{entries: map[string]history.Entry{
		"job-1": {JobID: "job-1", State: "DONE", OutputFiles: []string{"k"}},
	}}
	s := newTestServer(&fakeRunner{}, hist)

	w, body := do(t, s, http.MethodGet, "/jobs/job-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DONE", body["state"])

	w, _ = do(t, s, http.MethodGet, "/jobs/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = do(t, s, http.MethodGet, "/jobs?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["jobs"], 1)

	w, _ = do(t, s, http.MethodGet, "/jobs?limit=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestIDReachesRunner(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer(runner, nil)

	req := httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(envelopeBody(t)))
	req.Header.Set(RequestIDHeader, "req-77")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, runner.ctxs, 1)
	id, ok := ktx.CorrelationID(runner.ctxs[0])
	assert.True(t, ok)
	assert.Equal(t, "req-77", id)
	src, _ := ktx.Source(runner.ctxs[0])
	assert.Equal(t, "http", src)
}

func TestMetricsRoute(t *testing.T) {
	m := metrics.NewJobMetrics()
	m.RecordJob("accuracy", 0, true, 2, 0)
	s := New(Config{Metrics: m}, &fakeRunner{}, nil, logging.NewTestLogger())

	w, body := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["totalJobs"])
	assert.Equal(t, float64(2), body["artifacts"])

	w, _ = do(t, newTestServer(&fakeRunner{}, nil), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORS(t *testing.T) {
	const origin = "https://app.test"
	s := New(Config{AllowOrigins: []string{origin}}, &fakeRunner{}, nil, logging.NewTestLogger())

	req := httptest.NewRequest(http.MethodOptions, "/translate", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Less(t, w.Code, 300)
	assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodPost, "/translate", strings.NewReader(envelopeBody(t)))
	req.Header.Set("Origin", origin)
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), RequestIDHeader)

	req = httptest.NewRequest(http.MethodOptions, "/translate", nil)
	req.Header.Set("Origin", "https://evil.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
