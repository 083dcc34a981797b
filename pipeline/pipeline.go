// Package pipeline drives camera frames through orientation resolution and
// the effect player to the screen.
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/svanichkin/effectcam/codec"
	"github.com/svanichkin/effectcam/device"
	"github.com/svanichkin/effectcam/logs"
	"github.com/svanichkin/effectcam/mediactrl"
	"github.com/svanichkin/effectcam/orient"
)

// Player is the effect-rendering side: it takes a tagged image plus the
// rotation that makes it upright and completes asynchronously.
type Player interface {
	SurfaceChanged(w, h int)
	ProcessImage(img codec.Image, rot orient.Rotation, mirror bool, done func(codec.Frame)) error
}

// Sink shows a processed frame.
type Sink interface {
	Present(f codec.Frame)
}

// FrameRecorder receives every captured frame with its resolved rotation.
type FrameRecorder interface {
	WriteFrame(f codec.Frame, rot orient.Rotation, at time.Time) error
}

// Config is fixed for the lifetime of a pipeline.
type Config struct {
	Output orient.OutputOrientation
	Facing orient.CameraFacing
	Format codec.ImageFormat
	// SurfaceWidth x SurfaceHeight is the render surface in portrait; it is
	// swapped while the device is held in landscape.
	SurfaceWidth  int
	SurfaceHeight int
	// Mirror flips rendered frames left to right, as a front camera preview
	// is expected to look.
	Mirror   bool
	Recorder FrameRecorder
	Logger   *logrus.Entry
}

// Stats are frame counters since the pipeline was created.
type Stats struct {
	In        uint64
	Presented uint64
	Bypassed  uint64
	Dropped   uint64
	Rotation  orient.Rotation
}

// Pipeline connects the capture side, the player and the sink.
type Pipeline struct {
	cfg         Config
	orientation *device.Orientation
	player      Player
	sink        Sink
	log         *logrus.Entry

	in        atomic.Uint64
	presented atomic.Uint64
	bypassed  atomic.Uint64
	dropped   atomic.Uint64
	rotation  atomic.Int32
	recFailed atomic.Bool
}

// New validates cfg and builds a pipeline.
func New(cfg Config, orientation *device.Orientation, player Player, sink Sink) (*Pipeline, error) {
	if orientation == nil {
		return nil, fmt.Errorf("orientation source is nil")
	}
	if player == nil {
		return nil, fmt.Errorf("effect player is nil")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink is nil")
	}
	if cfg.SurfaceWidth <= 0 || cfg.SurfaceHeight <= 0 {
		return nil, fmt.Errorf("bad surface size %dx%d", cfg.SurfaceWidth, cfg.SurfaceHeight)
	}
	if cfg.Format == "" {
		cfg.Format = codec.FormatI420
	}
	log := cfg.Logger
	if log == nil {
		log = logs.Component("pipeline")
	}
	return &Pipeline{
		cfg:         cfg,
		orientation: orientation,
		player:      player,
		sink:        sink,
		log:         log,
	}, nil
}

// Run consumes frames until ctx is canceled or the channel closes. The player
// surface follows device rotation for as long as Run is active.
func (p *Pipeline) Run(ctx context.Context, frames <-chan codec.Frame) error {
	// subscribe first so a rotation between the two calls is not lost
	unsubscribe := p.orientation.Subscribe(p.applySurface)
	defer unsubscribe()
	p.applySurface(p.orientation.Load())

	p.log.WithFields(logrus.Fields{
		"output": p.cfg.Output.String(),
		"camera": p.cfg.Facing.String(),
		"format": string(p.cfg.Format),
		"mirror": p.cfg.Mirror,
	}).Info("pipeline running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			p.HandleFrame(f)
		}
	}
}

// HandleFrame routes one captured frame.
func (p *Pipeline) HandleFrame(f codec.Frame) {
	p.in.Add(1)
	if !mediactrl.CaptureEnabled() {
		p.dropped.Add(1)
		return
	}

	held := p.orientation.Load()
	rot := orient.Resolve(p.cfg.Output, held, p.cfg.Facing)
	p.rotation.Store(int32(rot))
	p.record(f, rot)

	if !mediactrl.EffectEnabled() {
		p.bypassed.Add(1)
		p.present(f)
		return
	}

	img, err := codec.ConvertTo420(f, p.cfg.Format)
	if err != nil {
		p.dropped.Add(1)
		logs.LogV("[pipeline] convert %dx%d: %v", f.Width, f.Height, err)
		return
	}
	if err := p.player.ProcessImage(img, rot, p.cfg.Mirror, p.present); err != nil {
		p.dropped.Add(1)
		p.log.WithError(err).WithFields(logrus.Fields{
			"rotation": rot.Degrees(),
			"device":   held.String(),
		}).Debug("effect player rejected frame")
	}
}

func (p *Pipeline) present(f codec.Frame) {
	p.presented.Add(1)
	p.sink.Present(f)
}

func (p *Pipeline) record(f codec.Frame, rot orient.Rotation) {
	if p.cfg.Recorder == nil {
		return
	}
	if err := p.cfg.Recorder.WriteFrame(f, rot, time.Now()); err != nil {
		// one warning is enough; a broken file fails on every frame
		if p.recFailed.CompareAndSwap(false, true) {
			p.log.WithError(err).Warn("recording failed")
		}
	}
}

func (p *Pipeline) applySurface(d orient.DeviceOrientation) {
	w, h, ok := orient.SurfaceSize(d, p.cfg.SurfaceWidth, p.cfg.SurfaceHeight)
	if !ok {
		return
	}
	p.player.SurfaceChanged(w, h)
	p.log.WithFields(logrus.Fields{
		"device": d.String(),
		"width":  w,
		"height": h,
	}).Debug("surface follows rotation")
}

// Rotation returns the rotation resolved for the latest frame.
func (p *Pipeline) Rotation() orient.Rotation {
	return orient.Rotation(p.rotation.Load())
}

// Stats returns a snapshot of the frame counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		In:        p.in.Load(),
		Presented: p.presented.Load(),
		Bypassed:  p.bypassed.Load(),
		Dropped:   p.dropped.Load(),
		Rotation:  p.Rotation(),
	}
}
