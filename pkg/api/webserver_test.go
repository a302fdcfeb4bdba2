package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chenBenjamin97/repcounter/pkg/config"
	"github.com/chenBenjamin97/repcounter/pkg/metrics"
	"github.com/chenBenjamin97/repcounter/pkg/pose"
	"github.com/chenBenjamin97/repcounter/pkg/reps"
	"github.com/chenBenjamin97/repcounter/pkg/store"
	"github.com/chenBenjamin97/repcounter/pkg/tracking"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func armAt(angle float64) *pose.Pose {
	rad := angle * math.Pi / 180
	return &pose.Pose{Keypoints: []pose.Keypoint{
		{Name: pose.LeftShoulder, X: 200, Y: 100, Score: 0.9},
		{Name: pose.LeftElbow, X: 200, Y: 200, Score: 0.9},
		{Name: pose.LeftWrist, X: 200 + 100*math.Sin(rad), Y: 200 - 100*math.Cos(rad), Score: 0.9},
	}}
}

type fakeModel struct {
	ready   bool
	loading bool
	err     error
	loads   int
}

func (m *fakeModel) Ready() bool   { return m.ready }
func (m *fakeModel) Loading() bool { return m.loading }
func (m *fakeModel) Err() error    { return m.err }
func (m *fakeModel) Load() <-chan error {
	m.loads++
	m.loading = true
	res := make(chan error, 1)
	res <- nil
	return res
}

// slowSource takes until release is closed to let go of its device.
type slowSource struct {
	stopping chan struct{}
	release  chan struct{}
}

func (s *slowSource) Start(context.Context) error                  { return nil }
func (s *slowSource) Ready() bool                                  { return false }
func (s *slowSource) NextPose(context.Context) (*pose.Pose, error) { return nil, nil }
func (s *slowSource) Stop() error {
	close(s.stopping)
	<-s.release
	return nil
}

type testServer struct {
	server  *Server
	router  *gin.Engine
	store   *store.Store
	metrics *metrics.Manager
}

func newTestServer(t *testing.T, sources SourceFactory, model ModelLoader) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.Directory.Models = t.TempDir()
	cfg.Tracking.FrameInterval = time.Millisecond
	cfg.Tracking.IdleWindow = time.Minute
	cfg.Tracking.MinKeypointScore = 0.3
	cfg.Tracking.Smoothing = 1
	cfg.Tracking.PushedPoseMaxAge = time.Minute

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	metricsManager, reg := metrics.NewTestManagerAndRegistry()
	server := NewServer(Params{
		Config:   cfg,
		Catalog:  reps.DefaultCatalog(),
		Store:    db,
		Metrics:  metricsManager,
		Gatherer: reg,
		Sources:  sources,
		Model:    model,
	})
	t.Cleanup(func() { server.StopSession(context.Background()) })

	return &testServer{server: server, router: server.SetRouter(), store: db, metrics: metricsManager}
}

func (ts *testServer) do(method, target string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) status(t *testing.T) map[string]any {
	rr := ts.do(http.MethodGet, "/api/Status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	status := map[string]any{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	return status
}

func TestExercisesAndModels(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	require.NoError(t, os.WriteFile(filepath.Join(ts.server.params.Config.Directory.Models, "graph_opt.pb"), []byte("x"), 0o644))

	rr := ts.do(http.MethodGet, "/api/Exercises", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var exercises []reps.Exercise
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &exercises))
	assert.Len(t, exercises, len(reps.DefaultCatalog()))
	assert.Equal(t, "bicep_curl", exercises[0].Name)

	rr = ts.do(http.MethodGet, "/api/Models", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `["graph_opt.pb"]`, rr.Body.String())

	rr = ts.do(http.MethodGet, "/api/Model", nil)
	assert.JSONEq(t, `{"available":false,"ready":false,"loading":false}`, rr.Body.String())
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPost, "/api/Model/Reload", nil).Code)
}

func TestModelReload(t *testing.T) {
	model := &fakeModel{err: fmt.Errorf("broken graph")}
	ts := newTestServer(t, nil, model)

	rr := ts.do(http.MethodGet, "/api/Model", nil)
	assert.JSONEq(t, `{"available":true,"ready":false,"loading":false,"error":"broken graph"}`, rr.Body.String())

	rr = ts.do(http.MethodPost, "/api/Model/Reload", nil)
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, 1, model.loads)

	// already loading
	rr = ts.do(http.MethodPost, "/api/Model/Reload", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, model.loads)
}

func TestClientSession(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	assert.JSONEq(t, `{"active":false}`, ts.do(http.MethodGet, "/api/Status", nil).Body.String())
	assert.Equal(t, http.StatusConflict, ts.do(http.MethodPost, "/api/Keypoints", armAt(40)).Code)

	rr := ts.do(http.MethodPost, "/api/Start", map[string]any{"exercise": "bicep_curl", "source": "client"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, true, ts.status(t)["active"])

	assert.Equal(t, http.StatusConflict, ts.do(http.MethodPost, "/api/Start", map[string]any{"exercise": "squat", "source": "client"}).Code)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusAccepted, ts.do(http.MethodPost, "/api/Keypoints", armAt(40)).Code)
		require.Eventually(t, func() bool { return ts.status(t)["state"] == "up" }, time.Second, time.Millisecond)
		require.Equal(t, http.StatusAccepted, ts.do(http.MethodPost, "/api/Keypoints", armAt(170)).Code)
		require.Eventually(t, func() bool { return ts.status(t)["state"] == "down" }, time.Second, time.Millisecond)
	}
	assert.Equal(t, float64(2), ts.status(t)["count"])

	rr = ts.do(http.MethodPost, "/api/Stop", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var session store.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &session))
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "bicep_curl", session.Exercise)
	assert.Equal(t, "client", session.Source)
	assert.Equal(t, 2, session.Reps)
	assert.Zero(t, session.AssistedReps)

	assert.Equal(t, http.StatusConflict, ts.do(http.MethodPost, "/api/Stop", nil).Code)
	assert.Equal(t, http.StatusConflict, ts.do(http.MethodPost, "/api/Reset", nil).Code)

	rr = ts.do(http.MethodGet, "/api/Sessions/"+session.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), session.ID)

	rr = ts.do(http.MethodGet, "/api/Sessions?exercise=bicep_curl&limit=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var sessions []store.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)

	rr = ts.do(http.MethodGet, "/api/Totals", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"exercise":"bicep_curl","sessions":1,"reps":2,"assistedReps":0}]`, rr.Body.String())

	assert.Equal(t, float64(2), testutil.ToFloat64(ts.metrics.CounterReps.WithLabelValues("bicep_curl", "detected")))
}

func TestResetAndMalformedKeypoints(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/Start", map[string]any{"exercise": "bicep_curl", "source": "client", "assist": true}).Code)
	assert.Equal(t, true, ts.status(t)["assistMode"])

	req := httptest.NewRequest(http.MethodPost, "/api/Keypoints", bytes.NewReader([]byte(`{"keypoints":`)))
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	unknown := &pose.Pose{Keypoints: []pose.Keypoint{{Name: "neck", Score: 0.5}}}
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodPost, "/api/Keypoints", unknown).Code)

	require.Equal(t, http.StatusAccepted, ts.do(http.MethodPost, "/api/Keypoints", armAt(40)).Code)
	require.Eventually(t, func() bool { return ts.status(t)["state"] == "up" }, time.Second, time.Millisecond)

	rr = ts.do(http.MethodPost, "/api/Reset", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ready", ts.status(t)["state"])
}

func TestStartErrors(t *testing.T) {
	sources := func(kind, exercise string) (tracking.PoseSource, error) {
		switch kind {
		case "camera":
			return nil, fmt.Errorf("camera: %w", tracking.ErrSourceNotReady)
		default:
			return nil, ErrUnsupportedSource
		}
	}
	ts := newTestServer(t, sources, nil)

	tests := []struct {
		name string
		body any
		code int
	}{
		{name: "malformed", body: "nope", code: http.StatusBadRequest},
		{name: "unknown exercise", body: map[string]any{"exercise": "jumping_jack", "source": "client"}, code: http.StatusNotFound},
		{name: "unknown source", body: map[string]any{"exercise": "squat", "source": "webcam"}, code: http.StatusNotAcceptable},
		{name: "model not ready", body: map[string]any{"exercise": "squat", "source": "camera"}, code: http.StatusServiceUnavailable},
		{name: "unsupported", body: map[string]any{"exercise": "squat", "source": "process"}, code: http.StatusNotAcceptable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := ts.do(http.MethodPost, "/api/Start", tt.body)
			assert.Equal(t, tt.code, rr.Code, rr.Body.String())
		})
	}

	assert.Equal(t, false, ts.status(t)["active"])
}

func TestSessionNotFound(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/api/Sessions/01ARZ3NDEKTSV4RRFFQ69G5FAV", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.do(http.MethodGet, "/api/Sessions?limit=-3", nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	ts.do(http.MethodGet, "/api/Status", nil)

	rr := ts.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "repcounter_test_request")
}

func TestPanicRecovery(t *testing.T) {
	metricsManager := metrics.NewTestManager()
	r := gin.New()
	r.Use(panicRecovery(metricsManager), requestMetrics(metricsManager))
	r.GET("/ok", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })
	r.GET("/panic", func(ctx *gin.Context) { panic("YOLO") })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(0), testutil.ToFloat64(metricsManager.CounterHandleRequestPanic))

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterHandleRequestPanic))
}

func TestStartWhileReleasingPreviousSource(t *testing.T) {
	slow := &slowSource{stopping: make(chan struct{}), release: make(chan struct{})}
	sources := func(kind, exercise string) (tracking.PoseSource, error) {
		return slow, nil
	}
	ts := newTestServer(t, sources, nil)
	start := map[string]any{"exercise": "squat", "source": "camera"}

	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/Start", start).Code)

	stopped := make(chan int, 1)
	go func() {
		stopped <- ts.do(http.MethodPost, "/api/Stop", nil).Code
	}()
	<-slow.stopping

	assert.Equal(t, http.StatusConflict, ts.do(http.MethodPost, "/api/Start", start).Code)
	assert.JSONEq(t, `{"active":false}`, ts.do(http.MethodGet, "/api/Status", nil).Body.String())

	close(slow.release)
	assert.Equal(t, http.StatusOK, <-stopped)

	slow.stopping, slow.release = make(chan struct{}), make(chan struct{})
	close(slow.release)
	assert.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/api/Start", start).Code)
}
