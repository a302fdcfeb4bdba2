package video

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	log "github.com/sirupsen/logrus"
)

//Camera owns a capture device. Start and Stop are idempotent
type Camera struct {
	device int
	width  int
	height int

	mu  sync.Mutex
	cap *gocv.VideoCapture
}

func NewCamera(device, width, height int) *Camera {
	return &Camera{device: device, width: width, height: height}
}

func (c *Camera) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap != nil {
		return nil
	}

	cap, err := gocv.OpenVideoCapture(c.device)
	if err != nil {
		return fmt.Errorf("%w: device %d, got '%v'", ErrCameraUnavailable, c.device, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return fmt.Errorf("%w: device %d could not be opened", ErrCameraUnavailable, c.device)
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(c.height))

	c.cap = cap
	log.Infof("Camera: device %d opened at %dx%d", c.device, c.width, c.height)

	return nil
}

//Read grabs the next frame into dst. It returns false when no frame is ready
func (c *Camera) Read(dst *gocv.Mat) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap == nil {
		return false
	}

	return c.cap.Read(dst) && !dst.Empty()
}

func (c *Camera) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.cap != nil
}

//Stop releases the device
func (c *Camera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cap == nil {
		return nil
	}

	err := c.cap.Close()
	c.cap = nil
	if err != nil {
		return fmt.Errorf("Camera: Error releasing device %d, got '%w'", c.device, err)
	}

	log.Infof("Camera: device %d released", c.device)
	return nil
}
