package video

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/chenBenjamin97/repcounter/pkg/pose"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gocv.io/x/gocv"
)

var tracer = otel.Tracer("repcounter-estimator")

//Estimator runs the single person OpenPose network. The network is loaded
//in the background by Load; until it is ready every Estimate call fails
//with ErrModelNotLoaded.
type Estimator struct {
	modelPath     string
	inputSize     int
	minConfidence float64

	mu      sync.Mutex
	net     *gocv.Net
	loading bool
	loadErr error
}

func NewEstimator(modelPath string, inputSize int, minConfidence float64) *Estimator {
	return &Estimator{
		modelPath:     modelPath,
		inputSize:     inputSize,
		minConfidence: minConfidence,
	}
}

//Load starts loading the network in a goroutine and returns a channel
//receiving the outcome. Loading again after a failure retries it; loading
//an already loaded network is a no-op.
func (e *Estimator) Load() <-chan error {
	res := make(chan error, 1)

	e.mu.Lock()
	if e.net != nil || e.loading {
		e.mu.Unlock()
		res <- nil
		return res
	}
	e.loading = true
	e.loadErr = nil
	e.mu.Unlock()

	go func() {
		begin := time.Now()
		net := gocv.ReadNetFromTensorflow(e.modelPath)

		e.mu.Lock()
		defer e.mu.Unlock()
		e.loading = false

		if net.Empty() {
			net.Close()
			e.loadErr = fmt.Errorf("%w: could not load '%s'", ErrModelNotLoaded, e.modelPath)
			log.Errorf("Estimator: Error, got '%v'", e.loadErr)
			res <- e.loadErr
			return
		}

		e.net = &net
		log.Infof("Estimator: model '%s' loaded in %s", e.modelPath, time.Since(begin))
		res <- nil
	}()

	return res
}

func (e *Estimator) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.net != nil
}

func (e *Estimator) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.loading
}

//Err returns the error of the last failed load, nil while loading or once loaded
func (e *Estimator) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.loadErr
}

//Estimate returns the pose found in frame, or nil when no body part
//reaches the confidence floor.
func (e *Estimator) Estimate(ctx context.Context, frame gocv.Mat) (_ *pose.Pose, err error) {
	_, span := tracer.Start(ctx, "estimator.estimate")
	defer func() {
		endSpan(span, err)
	}()

	if frame.Empty() {
		return nil, errNoFrame
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.net == nil {
		return nil, ErrModelNotLoaded
	}

	blob := gocv.BlobFromImage(frame, 1.0, image.Pt(e.inputSize, e.inputSize), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	prob := e.net.Forward("")
	defer prob.Close()

	s := prob.Size()
	if len(s) != 4 {
		return nil, fmt.Errorf("Estimate: unexpected output shape %v", s)
	}
	nparts, h, w := s[1], s[2], s[3]
	if nparts > len(openPoseParts) {
		nparts = len(openPoseParts)
	}
	span.SetAttributes(attribute.Int("parts", nparts))

	frameWidth, frameHeight := float64(frame.Cols()), float64(frame.Rows())

	p := &pose.Pose{Keypoints: make([]pose.Keypoint, 0, nparts)}
	var scoreSum float64
	for i := 0; i < nparts; i++ {
		name := openPoseParts[i]
		if name == "" {
			continue
		}

		heatmap, err := prob.FromPtr(h, w, gocv.MatTypeCV32F, 0, i)
		if err != nil {
			return nil, fmt.Errorf("Estimate: Error reading heatmap %d, got '%w'", i, err)
		}
		_, conf, _, pt := gocv.MinMaxLoc(heatmap)
		heatmap.Close()

		if float64(conf) < e.minConfidence {
			continue
		}

		// heatmaps are smaller than the frame, scale back to frame coordinates
		p.Keypoints = append(p.Keypoints, pose.Keypoint{
			Name:  name,
			X:     float64(pt.X) * frameWidth / float64(w),
			Y:     float64(pt.Y) * frameHeight / float64(h),
			Score: float64(conf),
		})
		scoreSum += float64(conf)
	}

	if len(p.Keypoints) == 0 {
		return nil, nil
	}
	p.Score = scoreSum / float64(len(p.Keypoints))

	return p, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (e *Estimator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.net == nil {
		return nil
	}
	err := e.net.Close()
	e.net = nil
	return err
}
