// Package capture - Camera and recorded-frame image sources for the pose estimator.
package capture

import (
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// ErrNotReady is returned before the first camera frame has been read.
var ErrNotReady = errors.New("no camera frame read yet")

// CameraConfig selects and sizes the capture device.
type CameraConfig struct {
	// DeviceID is the video capture device index.
	DeviceID int `json:"device_id" yaml:"device_id" validate:"gte=0"`
	// Width is the requested capture width in pixels.
	Width int `json:"width" yaml:"width" validate:"gt=0"`
	// Height is the requested capture height in pixels.
	Height int `json:"height" yaml:"height" validate:"gt=0"`
}

// DefaultCameraConfig opens device 0 at 640x480.
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{DeviceID: 0, Width: 640, Height: 480}
}

// Camera continuously reads a capture device and keeps the latest frame.
type Camera struct {
	config  CameraConfig
	log     *zap.Logger
	capture *gocv.VideoCapture

	mu     sync.RWMutex
	latest gocv.Mat
	ready  bool

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// OpenCamera opens the device and starts the read loop.
//
// Arguments:
//   - config: Device selection and capture size.
//   - log: Logger, nil for none.
//
// Returns:
//   - *Camera: The running camera; Close must be called to release the device.
//   - error: An error if the device cannot be opened.
func OpenCamera(config CameraConfig, log *zap.Logger) (*Camera, error) {
	if log == nil {
		log = zap.NewNop()
	}

	vc, err := gocv.OpenVideoCapture(config.DeviceID)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening video capture device %d", config.DeviceID)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(config.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(config.Height))

	c := &Camera{
		config:  config,
		log:     log,
		capture: vc,
		latest:  gocv.NewMat(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.readLoop()

	log.Info("camera opened", zap.Int("device", config.DeviceID), zap.Int("width", config.Width), zap.Int("height", config.Height))
	return c, nil
}

func (c *Camera) readLoop() {
	defer close(c.done)

	img := gocv.NewMat()
	defer img.Close()

	for {
		select {
		case <-c.stop:
			return
		default:
		}

		if ok := c.capture.Read(&img); !ok {
			c.log.Warn("cannot read camera device", zap.Int("device", c.config.DeviceID))
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if img.Empty() {
			continue
		}

		c.mu.Lock()
		img.CopyTo(&c.latest)
		c.ready = true
		c.mu.Unlock()
	}
}

// Snapshot returns the latest frame as an image.
func (c *Camera) Snapshot() (image.Image, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.ready {
		return nil, ErrNotReady
	}
	img, err := c.latest.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "converting camera frame")
	}
	return img, nil
}

// CopyLatest copies the latest frame into dst for rendering.
//
// Returns:
//   - bool: False before the first frame.
func (c *Camera) CopyLatest(dst *gocv.Mat) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.ready {
		return false
	}
	c.latest.CopyTo(dst)
	return true
}

// Close stops the read loop and releases the device.
func (c *Camera) Close() error {
	var err error
	c.once.Do(func() {
		close(c.stop)
		<-c.done

		c.mu.Lock()
		c.latest.Close()
		c.mu.Unlock()

		err = c.capture.Close()
	})
	return err
}
