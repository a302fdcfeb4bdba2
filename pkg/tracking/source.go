// Package tracking runs the per-frame loop feeding poses into the rep counter.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chenBenjamin97/repcounter/pkg/pose"
	"github.com/chenBenjamin97/repcounter/pkg/utils"
)

var (
	ErrAlreadyRunning = errors.New("tracking already running")
	ErrNotRunning     = errors.New("tracking not running")
)

//ErrSourceUnavailable means the source cannot be acquired at all (no
//device, permission denied). ErrSourceNotReady means it may start later
//(model still loading or failed to load).
var (
	ErrSourceUnavailable = errors.New("pose source unavailable")
	ErrSourceNotReady    = errors.New("pose source not ready")
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=tracking_test

//PoseSource produces at most one pose per call of NextPose. NextPose may
//return a nil pose without error when no person was found or no new data
//arrived since the last call.
type PoseSource interface {
	Start(ctx context.Context) error
	Ready() bool
	NextPose(ctx context.Context) (*pose.Pose, error)
	Stop() error
}

//Annotator is implemented by sources that want to render tracking results
//on the frame a pose came from.
type Annotator interface {
	Annotate(p *pose.Pose, snap Snapshot)
}

//PushSource is fed by clients running their own pose model (e.g. in the browser)
type PushSource struct {
	maxAge time.Duration
	now    func() time.Time

	mu       sync.Mutex
	started  bool
	latest   *pose.Pose
	pushedAt time.Time
}

func NewPushSource(maxAge time.Duration) *PushSource {
	if maxAge <= 0 {
		maxAge = utils.PushedPoseMaxAge
	}
	return &PushSource{maxAge: maxAge, now: time.Now}
}

func (s *PushSource) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = true
	return nil
}

func (s *PushSource) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.started
}

//Push replaces the pending pose. Only the most recent pose is kept
func (s *PushSource) Push(p *pose.Pose) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid pose: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return ErrNotRunning
	}
	s.latest = p
	s.pushedAt = s.now()
	return nil
}

func (s *PushSource) NextPose(_ context.Context) (*pose.Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.latest
	s.latest = nil
	if p == nil || s.now().Sub(s.pushedAt) > s.maxAge {
		return nil, nil
	}
	return p, nil
}

func (s *PushSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = false
	s.latest = nil
	return nil
}
