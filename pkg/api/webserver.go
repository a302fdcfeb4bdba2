package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"sync"

	"github.com/chenBenjamin97/repcounter/pkg/config"
	"github.com/chenBenjamin97/repcounter/pkg/metrics"
	"github.com/chenBenjamin97/repcounter/pkg/pose"
	"github.com/chenBenjamin97/repcounter/pkg/reps"
	"github.com/chenBenjamin97/repcounter/pkg/store"
	"github.com/chenBenjamin97/repcounter/pkg/tracking"
	"github.com/chenBenjamin97/repcounter/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var ErrUnsupportedSource = errors.New("unsupported pose source")

//SourceFactory creates the pose source of a new session for the camera
//and process kinds. Client sources are owned by the server itself.
type SourceFactory func(kind, exercise string) (tracking.PoseSource, error)

//SessionStore is the part of store.Store the server needs
type SessionStore interface {
	SaveSession(ctx context.Context, session store.Session) (store.Session, error)
	GetSession(ctx context.Context, id string) (store.Session, error)
	ListSessions(ctx context.Context, params store.ListParams) ([]store.Session, error)
	Totals(ctx context.Context) ([]store.ExerciseTotals, error)
}

//ModelLoader reports and controls the state of the local pose model
type ModelLoader interface {
	Ready() bool
	Loading() bool
	Err() error
	Load() <-chan error
}

type Params struct {
	Config   *config.Config
	Catalog  reps.Catalog
	Store    SessionStore
	Metrics  *metrics.Manager
	Gatherer prometheus.Gatherer
	Sources  SourceFactory
	// Model is nil when the server runs without a local pose model.
	Model ModelLoader
}

//Server exposes a single tracking session over HTTP. At most one session
//is active at a time.
type Server struct {
	params Params

	mu      sync.Mutex
	tracker *tracking.Tracker
	push    *tracking.PushSource

	// stopping is set while the previous session still holds its source
	stopping bool
}

func NewServer(params Params) *Server {
	if params.Metrics == nil {
		params.Metrics = metrics.NewTestManager()
	}
	if params.Gatherer == nil {
		params.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{params: params}
}

type startRequest struct {
	Exercise string `json:"exercise"`
	Source   string `json:"source"`
	// Assist falls back to tracking.assist-mode when omitted.
	Assist *bool `json:"assist"`
}

type modelStatus struct {
	Available bool   `json:"available"`
	Ready     bool   `json:"ready"`
	Loading   bool   `json:"loading"`
	Error     string `json:"error,omitempty"`
}

func (s *Server) SetRouter() *gin.Engine {
	r := gin.New()
	r.Use(panicRecovery(s.params.Metrics), requestMetrics(s.params.Metrics), logRequest())

	//serve html pages to client
	if staticPath := s.params.Config.Frontend.StaticFilesPath; staticPath != "" {
		r.Static("/client", staticPath)
		r.StaticFile("/", path.Join(staticPath, "index.html"))
	}

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.params.Gatherer, promhttp.HandlerOpts{})))

	apiRoutes := r.Group("/api")

	apiRoutes.GET("/Exercises", func(ctx *gin.Context) {
		exercises := make([]reps.Exercise, 0, len(s.params.Catalog))
		for _, name := range s.params.Catalog.Names() {
			exercises = append(exercises, s.params.Catalog[name])
		}
		ctx.JSON(http.StatusOK, exercises)
	})

	apiRoutes.GET("/Models", func(ctx *gin.Context) {
		if names, err := utils.ListDir(s.params.Config.Directory.Models); err != nil {
			log.Errorf("api/Models: %v", err)
			ctx.Status(http.StatusInternalServerError)
		} else {
			ctx.JSON(http.StatusOK, names)
		}
	})

	apiRoutes.GET("/Model", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, s.modelStatus())
	})

	apiRoutes.POST("/Model/Reload", func(ctx *gin.Context) {
		if s.params.Model == nil {
			ctx.Status(http.StatusNotFound)
			return
		}
		if s.params.Model.Ready() || s.params.Model.Loading() {
			ctx.JSON(http.StatusOK, s.modelStatus())
			return
		}

		s.params.Model.Load()
		ctx.JSON(http.StatusAccepted, s.modelStatus())
	})

	apiRoutes.POST("/Start", s.handleStart)
	apiRoutes.POST("/Stop", s.handleStop)

	apiRoutes.POST("/Reset", func(ctx *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.tracker == nil {
			ctx.Status(http.StatusConflict)
			return
		}
		if err := s.tracker.Reset(); err != nil {
			ctx.Status(http.StatusConflict)
			return
		}
		ctx.JSON(http.StatusOK, s.tracker.Snapshot())
	})

	apiRoutes.GET("/Status", func(ctx *gin.Context) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.tracker == nil {
			ctx.JSON(http.StatusOK, gin.H{"active": false})
			return
		}
		ctx.JSON(http.StatusOK, s.tracker.Snapshot())
	})

	apiRoutes.POST("/Keypoints", func(ctx *gin.Context) {
		p := &pose.Pose{}
		if err := ctx.ShouldBindJSON(p); err != nil {
			ctx.String(http.StatusBadRequest, "malformed pose: %v", err)
			return
		}

		s.mu.Lock()
		push := s.push
		s.mu.Unlock()

		if push == nil {
			ctx.Status(http.StatusConflict) //no client session is running
			return
		}

		if err := push.Push(p); err != nil {
			if errors.Is(err, tracking.ErrNotRunning) {
				ctx.Status(http.StatusConflict)
				return
			}
			ctx.String(http.StatusBadRequest, "%v", err)
			return
		}
		ctx.Status(http.StatusAccepted)
	})

	apiRoutes.GET("/Sessions", func(ctx *gin.Context) {
		params := store.ListParams{Exercise: ctx.Query("exercise")}
		if limit := ctx.Query("limit"); limit != "" {
			n, err := strconv.Atoi(limit)
			if err != nil || n < 0 {
				ctx.Status(http.StatusBadRequest)
				return
			}
			params.Limit = n
		}

		sessions, err := s.params.Store.ListSessions(ctx.Request.Context(), params)
		if err != nil {
			log.Errorf("api/Sessions: %v", err)
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.JSON(http.StatusOK, sessions)
	})

	apiRoutes.GET("/Sessions/:id", func(ctx *gin.Context) {
		session, err := s.params.Store.GetSession(ctx.Request.Context(), ctx.Param("id"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				ctx.Status(http.StatusNotFound)
				return
			}
			log.Errorf("api/Sessions/:id: %v", err)
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.JSON(http.StatusOK, session)
	})

	apiRoutes.GET("/Totals", func(ctx *gin.Context) {
		totals, err := s.params.Store.Totals(ctx.Request.Context())
		if err != nil {
			log.Errorf("api/Totals: %v", err)
			ctx.Status(http.StatusInternalServerError)
			return
		}
		ctx.JSON(http.StatusOK, totals)
	})

	return r
}

func (s *Server) modelStatus() modelStatus {
	if s.params.Model == nil {
		return modelStatus{}
	}

	status := modelStatus{
		Available: true,
		Ready:     s.params.Model.Ready(),
		Loading:   s.params.Model.Loading(),
	}
	if err := s.params.Model.Err(); err != nil {
		status.Error = err.Error()
	}
	return status
}

func (s *Server) handleStart(ctx *gin.Context) {
	req := startRequest{}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.String(http.StatusBadRequest, "malformed request: %v", err)
		return
	}

	exercise, err := s.params.Catalog.Get(req.Exercise)
	if err != nil {
		ctx.String(http.StatusNotFound, "%v", err)
		return
	}

	if !utils.InSlice(req.Source, utils.Sources) {
		ctx.String(http.StatusNotAcceptable, "source must be one of %v", utils.Sources)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tracker != nil || s.stopping {
		ctx.Status(http.StatusConflict)
		return
	}

	var (
		source tracking.PoseSource
		push   *tracking.PushSource
	)
	if req.Source == utils.SourceClient {
		push = tracking.NewPushSource(s.params.Config.Tracking.PushedPoseMaxAge)
		source = push
	} else {
		if s.params.Sources == nil {
			ctx.String(http.StatusNotAcceptable, "source %s is not available", req.Source)
			return
		}
		source, err = s.params.Sources(req.Source, exercise.Name)
		if err != nil {
			s.startError(ctx, err)
			return
		}
	}

	assist := s.params.Config.Tracking.AssistMode
	if req.Assist != nil {
		assist = *req.Assist
	}

	tracker := tracking.NewTracker(source, tracking.Options{
		Exercise:      exercise,
		Source:        req.Source,
		AssistMode:    assist,
		IdleWindow:    s.params.Config.Tracking.IdleWindow,
		FrameInterval: s.params.Config.Tracking.FrameInterval,
		MinScore:      s.params.Config.Tracking.MinKeypointScore,
		Smoothing:     s.params.Config.Tracking.Smoothing,
	}, s.params.Metrics)

	if err := tracker.Start(ctx.Request.Context()); err != nil {
		s.startError(ctx, err)
		return
	}

	s.tracker = tracker
	s.push = push
	ctx.JSON(http.StatusOK, tracker.Snapshot())
}

func (s *Server) startError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnsupportedSource):
		ctx.String(http.StatusNotAcceptable, "%v", err)
	case errors.Is(err, tracking.ErrSourceNotReady):
		ctx.String(http.StatusServiceUnavailable, "%v", err)
	default:
		log.Errorf("api/Start: Error, got '%v'", err)
		ctx.String(http.StatusInternalServerError, "%v", err)
	}
}

func (s *Server) handleStop(ctx *gin.Context) {
	session, err := s.StopSession(ctx.Request.Context())
	if err != nil {
		if errors.Is(err, tracking.ErrNotRunning) {
			ctx.Status(http.StatusConflict)
			return
		}
		log.Errorf("api/Stop: Error, got '%v'", err)
		ctx.String(http.StatusInternalServerError, "%v", err)
		return
	}
	ctx.JSON(http.StatusOK, session)
}

//StopSession stops the active session and saves it. A failure releasing
//the source is logged, the session is saved anyway. No session can start
//until the source is released.
func (s *Server) StopSession(ctx context.Context) (store.Session, error) {
	s.mu.Lock()
	tracker := s.tracker
	if tracker == nil {
		s.mu.Unlock()
		return store.Session{}, tracking.ErrNotRunning
	}
	s.tracker, s.push = nil, nil
	s.stopping = true
	s.mu.Unlock()

	summary, err := tracker.Stop()

	s.mu.Lock()
	s.stopping = false
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, tracking.ErrNotRunning) {
			return store.Session{}, err
		}
		log.Errorf("StopSession: Error, got '%v'", err)
	}

	session, err := s.params.Store.SaveSession(ctx, store.Session{
		Exercise:     summary.Exercise,
		Source:       summary.Source,
		Reps:         summary.Reps,
		AssistedReps: summary.AssistedReps,
		AssistMode:   summary.AssistMode,
		StartedAt:    summary.StartedAt,
		EndedAt:      summary.EndedAt,
	})
	if err != nil {
		return store.Session{}, fmt.Errorf("save session: %w", err)
	}

	return session, nil
}
