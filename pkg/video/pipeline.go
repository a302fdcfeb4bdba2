package video

import (
	"context"
	"fmt"
	"sync"

	"github.com/chenBenjamin97/repcounter/pkg/pose"
	"github.com/chenBenjamin97/repcounter/pkg/tracking"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

//Pipeline reads frames from a camera and runs them through the estimator.
//With a recorder attached, every estimated frame is annotated with the
//skeleton and the counter and appended to the recording.
type Pipeline struct {
	camera    *Camera
	estimator *Estimator
	recorder  *Recorder
	minScore  float64

	mu sync.Mutex
	// frame is allocated by Start and released by Stop
	frame *gocv.Mat
}

var (
	_ tracking.PoseSource = (*Pipeline)(nil)
	_ tracking.Annotator  = (*Pipeline)(nil)
)

//NewPipeline creates a camera pose source. recorder may be nil
func NewPipeline(camera *Camera, estimator *Estimator, recorder *Recorder, minScore float64) *Pipeline {
	return &Pipeline{
		camera:    camera,
		estimator: estimator,
		recorder:  recorder,
		minScore:  minScore,
	}
}

func (p *Pipeline) Start(ctx context.Context) error {
	if !p.estimator.Ready() {
		if err := p.estimator.Err(); err != nil {
			return err
		}
		return ErrModelNotLoaded
	}

	if err := p.camera.Start(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frame == nil {
		frame := gocv.NewMat()
		p.frame = &frame
	}

	return nil
}

func (p *Pipeline) Ready() bool {
	return p.camera.Running() && p.estimator.Ready()
}

func (p *Pipeline) NextPose(ctx context.Context) (*pose.Pose, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frame == nil || !p.camera.Read(p.frame) {
		return nil, nil
	}

	return p.estimator.Estimate(ctx, *p.frame)
}

//Annotate draws on the last estimated frame and records it
func (p *Pipeline) Annotate(ps *pose.Pose, snap tracking.Snapshot) {
	if p.recorder == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.frame == nil || p.frame.Empty() {
		return
	}

	plotSkeleton(p.frame, ps, p.minScore)
	plotCounter(p.frame, snap)

	if err := p.recorder.Write(*p.frame); err != nil {
		log.Errorf("Pipeline: Error, got '%v'", err)
	}
}

//Stop releases the camera, the frame buffer and finishes the recording. The estimator stays loaded for the next session
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.camera.Stop()
	if p.recorder != nil {
		err = multierr.Append(err, p.recorder.Close())
	}
	if p.frame != nil {
		err = multierr.Append(err, p.frame.Close())
		p.frame = nil
	}
	if err != nil {
		return fmt.Errorf("Pipeline: %w", err)
	}

	return nil
}
