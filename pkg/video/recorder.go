package video

import (
	"fmt"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

const recordingCodec = "MJPG"

//Recorder writes annotated frames to '<dir>/<exercise>-<timestamp>.avi'. The file is created with the first frame
type Recorder struct {
	path   string
	fps    float64
	writer *gocv.VideoWriter
	frames int
}

func NewRecorder(dir, exercise string, fps float64, now time.Time) *Recorder {
	name := fmt.Sprintf("%s-%s.avi", exercise, now.UTC().Format("20060102-150405"))
	return &Recorder{path: filepath.Join(dir, name), fps: fps}
}

func (r *Recorder) Path() string {
	return r.path
}

func (r *Recorder) Write(frame gocv.Mat) error {
	if frame.Empty() {
		return errNoFrame
	}

	if r.writer == nil {
		writer, err := gocv.VideoWriterFile(r.path, recordingCodec, r.fps, frame.Cols(), frame.Rows(), true)
		if err != nil {
			return fmt.Errorf("Recorder: Error opening '%s', got '%w'", r.path, err)
		}
		r.writer = writer
		log.Infof("Recorder: recording to '%s'", r.path)
	}

	if err := r.writer.Write(frame); err != nil {
		return fmt.Errorf("Recorder: Error writing frame, got '%w'", err)
	}
	r.frames++

	return nil
}

func (r *Recorder) Close() error {
	if r.writer == nil {
		return nil
	}

	err := r.writer.Close()
	r.writer = nil
	log.Infof("Recorder: %d frames written to '%s'", r.frames, r.path)

	return err
}
