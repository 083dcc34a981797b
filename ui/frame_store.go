package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/svanichkin/effectcam/codec"
)

type frameRecord struct {
	frame     *codec.Frame
	version   uint64
	updatedAt time.Time
}

var (
	previewMu sync.RWMutex
	preview   frameRecord
)

// SetFrame updates the cached preview frame and schedules a redraw.
func SetFrame(f codec.Frame) {
	if !f.Valid() {
		return
	}
	previewMu.Lock()
	preview.frame = &f
	preview.version++
	preview.updatedAt = time.Now()
	previewMu.Unlock()
	fps.recordFrame(time.Now())
	RequestRedraw()
}

// ClearFrame removes the cached preview so the UI falls back to status text.
func ClearFrame() {
	previewMu.Lock()
	preview.frame = nil
	preview.version++
	preview.updatedAt = time.Now()
	previewMu.Unlock()
	RequestRedraw()
}

// LatestFrame returns the frame currently on screen.
func LatestFrame() (codec.Frame, bool) {
	f, _, _ := frameSnapshot()
	if f == nil {
		return codec.Frame{}, false
	}
	return *f, true
}

func frameSnapshot() (*codec.Frame, uint64, time.Time) {
	previewMu.RLock()
	defer previewMu.RUnlock()
	return preview.frame, preview.version, preview.updatedAt
}

// Sink presents pipeline output on the terminal.
type Sink struct{}

// Present implements the pipeline sink.
func (Sink) Present(f codec.Frame) {
	SetFrame(f)
}

type fpsCounter struct {
	mu       sync.Mutex
	lastTick time.Time
	frames   int
	display  int
}

var fps fpsCounter

func (fc *fpsCounter) recordFrame(now time.Time) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.lastTick.IsZero() {
		fc.lastTick = now
	}
	fc.frames++
	elapsed := now.Sub(fc.lastTick)
	if elapsed >= time.Second {
		fc.display = int(float64(fc.frames)/elapsed.Seconds() + 0.5)
		fc.frames = 0
		fc.lastTick = now
	}
}

func (fc *fpsCounter) label() string {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fmt.Sprintf("%d FPS", fc.display)
}
