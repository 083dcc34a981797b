package device

import (
	"context"
	"fmt"

	"github.com/svanichkin/gocam"

	"github.com/svanichkin/effectcam/codec"
	"github.com/svanichkin/effectcam/logs"
)

// DefaultCaptureWidth and DefaultCaptureHeight are the frame size handed to the
// pipeline when the caller does not ask for one.
const (
	DefaultCaptureWidth  = 640
	DefaultCaptureHeight = 360
)

// StartCameraStream starts camera capture using gocam and returns a frame
// channel. Frames are center-cropped to the w:h aspect and resized to w x h.
// When the consumer lags behind, the oldest queued frame is dropped.
func StartCameraStream(ctx context.Context, w, h int) (<-chan codec.Frame, error) {
	if w <= 0 || h <= 0 {
		w, h = DefaultCaptureWidth, DefaultCaptureHeight
	}
	src, err := gocam.StartStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("camera start: %w", err)
	}
	log := logs.Component("camera")
	log.WithField("size", fmt.Sprintf("%dx%d", w, h)).Info("camera started")

	out := make(chan codec.Frame, 2)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case f, ok := <-src:
				if !ok {
					log.Info("camera stream closed")
					return
				}
				raw := codec.Frame{Data: f.Data, Width: f.Width, Height: f.Height}
				rf, err := codec.Fit(raw, w, h)
				if err != nil {
					logs.LogV("[camera] drop frame %dx%d: %v", f.Width, f.Height, err)
					continue
				}
				sendLatest(out, rf)
			}
		}
	}()
	return out, nil
}

// sendLatest never blocks: a full channel loses its oldest frame.
func sendLatest(out chan codec.Frame, f codec.Frame) {
	for {
		select {
		case out <- f:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}
