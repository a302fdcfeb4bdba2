package tracking

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/chenBenjamin97/repcounter/pkg/metrics"
	"github.com/chenBenjamin97/repcounter/pkg/pose"
	"github.com/chenBenjamin97/repcounter/pkg/reps"
	"github.com/chenBenjamin97/repcounter/pkg/utils"

	log "github.com/sirupsen/logrus"
)

type Options struct {
	Exercise      reps.Exercise
	Source        string
	AssistMode    bool
	IdleWindow    time.Duration
	FrameInterval time.Duration
	MinScore      float64
	Smoothing     int
	// Now is used for every timestamp of the session, time.Now when nil.
	Now func() time.Time
}

//Snapshot is the state of a session at one point in time.
type Snapshot struct {
	Active       bool       `json:"active"`
	Exercise     string     `json:"exercise,omitempty"`
	Source       string     `json:"source,omitempty"`
	State        reps.State `json:"state"`
	Count        int        `json:"count"`
	Assisted     int        `json:"assisted"`
	AssistMode   bool       `json:"assistMode"`
	Angle        *float64   `json:"angle,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	LastMovement time.Time  `json:"lastMovement"`
}

//Summary describes a finished session.
type Summary struct {
	Exercise     string
	Source       string
	Reps         int
	AssistedReps int
	AssistMode   bool
	StartedAt    time.Time
	EndedAt      time.Time
}

//Tracker owns one tracking session: the loop goroutine, its timer and the
//rep counter. Snapshot, Reset and Stop may be called from other goroutines.
type Tracker struct {
	opts    Options
	source  PoseSource
	metrics *metrics.Manager

	mu       sync.Mutex
	running  bool
	counter  *reps.Counter
	detector *reps.Detector
	started  time.Time
	cancel   context.CancelFunc
	done     chan struct{}
	subs     []chan Snapshot
}

func NewTracker(source PoseSource, opts Options, metricsManager *metrics.Manager) *Tracker {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = utils.FrameInterval
	}
	if opts.IdleWindow <= 0 {
		opts.IdleWindow = utils.IdleWindow
	}
	if opts.MinScore <= 0 {
		opts.MinScore = utils.MinKeypointScore
	}
	if opts.Smoothing <= 0 {
		opts.Smoothing = utils.SmoothingWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if metricsManager == nil {
		metricsManager = metrics.NewTestManager()
	}

	now := opts.Now()
	return &Tracker{
		opts:     opts,
		source:   source,
		metrics:  metricsManager,
		counter:  reps.NewCounter(opts.AssistMode, opts.IdleWindow, now),
		detector: reps.NewDetector(opts.Exercise, opts.MinScore, opts.Smoothing),
	}
}

//Start starts the pose source and the tracking loop. Source failures are returned and tracking does not start
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return ErrAlreadyRunning
	}

	if err := t.source.Start(ctx); err != nil {
		return fmt.Errorf("start pose source: %w", err)
	}

	now := t.opts.Now()
	t.counter.Reset(now)
	t.detector.Reset()
	t.started = now

	// the loop outlives the caller's ctx, Stop ends it
	loopCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	t.running = true

	go t.run(loopCtx, t.done)

	t.metrics.GaugeActiveSessions.Inc()
	log.Infof("tracking started: exercise [%s] source [%s] assist [%t]", t.opts.Exercise.Name, t.opts.Source, t.opts.AssistMode)

	return nil
}

func (t *Tracker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.opts.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.step(ctx)
		}
	}
}

func (t *Tracker) step(ctx context.Context) {
	t.mu.Lock()
	if t.counter.Tick(t.opts.Now()) {
		t.metrics.CounterReps.WithLabelValues(t.opts.Exercise.Name, "assisted").Inc()
		log.Debugf("assisted rep counted: %d", t.counter.Count())
		t.notifyLocked()
	}
	t.mu.Unlock()

	if !t.source.Ready() {
		t.metrics.CounterFrames.WithLabelValues("not_ready").Inc()
		return
	}

	begin := time.Now()
	p, err := t.source.NextPose(ctx)
	t.metrics.HistEstimationDuration.Observe(time.Since(begin).Seconds())

	if ctx.Err() != nil {
		// stopped while estimating, the result is stale
		return
	}

	if err != nil {
		t.metrics.CounterEstimationErrors.Inc()
		t.metrics.CounterFrames.WithLabelValues("error").Inc()
		log.Debugf("Tracker: Error estimating pose, skipping frame, got '%v'", err)
		return
	}

	if p == nil {
		t.metrics.CounterFrames.WithLabelValues("no_pose").Inc()
		return
	}

	t.metrics.CounterFrames.WithLabelValues("pose").Inc()
	snap := t.observe(p)

	if a, ok := t.source.(Annotator); ok {
		a.Annotate(p, snap)
	}
}

func (t *Tracker) observe(p *pose.Pose) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos := t.detector.Detect(p)
	before := t.counter.State()
	counted := t.counter.Observe(pos, t.opts.Now())

	if counted {
		t.metrics.CounterReps.WithLabelValues(t.opts.Exercise.Name, "detected").Inc()
		log.Debugf("rep counted: %d", t.counter.Count())
	}
	if counted || before != t.counter.State() {
		t.notifyLocked()
	}

	return t.snapshotLocked()
}

//Reset puts the running session back to ready with a zero count
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return ErrNotRunning
	}

	t.counter.Reset(t.opts.Now())
	t.detector.Reset()
	t.notifyLocked()

	return nil
}

//Stop ends the loop, waits for it to exit and releases the source. The
//returned summary is valid even when releasing the source failed.
func (t *Tracker) Stop() (Summary, error) {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return Summary{}, ErrNotRunning
	}
	t.running = false
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	cancel()
	<-done

	err := t.source.Stop()
	if err != nil {
		err = fmt.Errorf("stop pose source: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	summary := Summary{
		Exercise:     t.opts.Exercise.Name,
		Source:       t.opts.Source,
		Reps:         t.counter.Count(),
		AssistedReps: t.counter.Assisted(),
		AssistMode:   t.opts.AssistMode,
		StartedAt:    t.started,
		EndedAt:      t.opts.Now(),
	}

	for _, sub := range t.subs {
		close(sub)
	}
	t.subs = nil

	t.metrics.GaugeActiveSessions.Dec()
	log.Infof("tracking stopped: exercise [%s] reps [%d] assisted [%d]", summary.Exercise, summary.Reps, summary.AssistedReps)

	return summary, err
}

func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.running
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	snap := Snapshot{
		Active:       t.running,
		Exercise:     t.opts.Exercise.Name,
		Source:       t.opts.Source,
		State:        t.counter.State(),
		Count:        t.counter.Count(),
		Assisted:     t.counter.Assisted(),
		AssistMode:   t.opts.AssistMode,
		StartedAt:    t.started,
		LastMovement: t.counter.LastMovement(),
	}
	if angle := t.detector.LastAngle(); !math.IsNaN(angle) {
		snap.Angle = &angle
	}
	return snap
}

//Subscribe returns a channel receiving a snapshot after every change. The
//channel is closed when the session stops. Slow readers miss updates.
func (t *Tracker) Subscribe() <-chan Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	ch := make(chan Snapshot, 16)
	if !t.running {
		close(ch)
		return ch
	}
	t.subs = append(t.subs, ch)
	return ch
}

func (t *Tracker) notifyLocked() {
	snap := t.snapshotLocked()
	for _, sub := range t.subs {
		select {
		case sub <- snap:
		default:
		}
	}
}
