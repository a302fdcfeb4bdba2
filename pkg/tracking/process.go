package tracking

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/chenBenjamin97/repcounter/pkg/pose"

	log "github.com/sirupsen/logrus"
)

//ProcessSource runs an external pose estimator and reads the poses it prints
//to its standard output, one JSON object per line:
//
//	{"keypoints":[{"name":"left_wrist","x":120.5,"y":88,"score":0.92}, ...]}
//
//Any other line is treated as a log print and skipped. A line reading "EOF"
//ends the stream.
type ProcessSource struct {
	name string
	args []string

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	poses   chan *pose.Pose
	running bool
}

func NewProcessSource(command string) (*ProcessSource, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("empty estimator command")
	}
	return &ProcessSource{name: fields[0], args: fields[1:]}, nil
}

//Start launches the process. The process lifetime is bound to Stop, not to ctx
func (s *ProcessSource) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, s.name, s.args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("ProcessSource: Error getting standard output, got '%w'", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("%w: ProcessSource: Error executing '%s', got '%w'", ErrSourceUnavailable, s.name, err)
	}

	s.cancel = cancel
	s.done = make(chan struct{})
	s.poses = make(chan *pose.Pose, 1)
	s.running = true

	go s.read(cmd, stdout, s.poses, s.done)

	return nil
}

//read is the only writer of poses and the only closer of done
func (s *ProcessSource) read(cmd *exec.Cmd, stdout io.Reader, poses chan *pose.Pose, done chan struct{}) {
	defer close(done)

	err := ScanPoses(stdout, func(p *pose.Pose) {
		// keep only the latest pose
		select {
		case <-poses:
		default:
		}
		poses <- p
	})
	if err != nil {
		log.Errorf("ProcessSource: Error reading estimator output, got '%v'", err)
	}

	if err := cmd.Wait(); err != nil {
		log.Debugf("ProcessSource: Estimator process exited, got '%v'", err)
	}
}

//Ready reports whether the estimator process is still producing output
func (s *ProcessSource) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return false
	}
	select {
	case <-s.done:
		return len(s.poses) > 0
	default:
		return true
	}
}

func (s *ProcessSource) NextPose(_ context.Context) (*pose.Pose, error) {
	s.mu.Lock()
	poses := s.poses
	s.mu.Unlock()

	if poses == nil {
		return nil, ErrNotRunning
	}

	select {
	case p := <-poses:
		return p, nil
	default:
		return nil, nil
	}
}

func (s *ProcessSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	return nil
}

//ScanPoses calls fn for every pose line in r until EOF (or an "EOF" line).
//Malformed or invalid pose lines are logged and skipped.
func ScanPoses(r io.Reader, fn func(p *pose.Pose)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "EOF" {
			return nil
		}

		if !strings.Contains(line, "\"keypoints\"") { //log print, skip it
			continue
		}

		p := &pose.Pose{}
		if err := json.Unmarshal([]byte(line), p); err != nil {
			log.Warnf("ScanPoses: Error, got '%v'", err)
			continue
		}
		if len(p.Keypoints) == 0 {
			continue
		}
		if err := p.Validate(); err != nil {
			log.Warnf("ScanPoses: skipping pose, got '%v'", err)
			continue
		}
		fn(p)
	}

	return scanner.Err()
}
