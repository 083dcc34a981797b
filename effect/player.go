// Package effect hosts the offscreen effect player: it accepts camera images
// tagged with their pixel format and input rotation, renders them onto an
// offscreen surface and hands the result back through a completion callback.
package effect

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/svanichkin/effectcam/codec"
	"github.com/svanichkin/effectcam/logs"
	"github.com/svanichkin/effectcam/orient"
)

var (
	ErrClosed         = errors.New("effect player closed")
	ErrEffectNotFound = errors.New("effect not found")
)

// Options configures a Player.
type Options struct {
	Width, Height int
	// ResourceDirs are searched for effect folders. When empty, any effect
	// name is accepted.
	ResourceDirs []string
	Logger       *logrus.Entry
}

// Stats counts frames seen by the player.
type Stats struct {
	Rendered uint64
	Dropped  uint64
	Failed   uint64
}

type job struct {
	img    codec.Image
	rot    orient.Rotation
	mirror bool
	done   func(codec.Frame)
}

// Player renders on a single goroutine. Only the latest submitted image is
// kept: a frame still waiting when the next one arrives is dropped.
type Player struct {
	mu           sync.Mutex
	width        int
	height       int
	effect       string
	resourceDirs []string
	paused       bool
	closed       bool
	pending      *job

	wake      chan struct{}
	quit      chan struct{}
	finished  chan struct{}
	closeOnce sync.Once

	rendered atomic.Uint64
	dropped  atomic.Uint64
	failed   atomic.Uint64

	log *logrus.Entry
}

// NewPlayer creates a player with a w x h offscreen surface and starts its
// render goroutine.
func NewPlayer(opts Options) (*Player, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("bad surface size %dx%d", opts.Width, opts.Height)
	}
	log := opts.Logger
	if log == nil {
		log = logs.Component("effect")
	}
	p := &Player{
		width:        opts.Width,
		height:       opts.Height,
		resourceDirs: append([]string(nil), opts.ResourceDirs...),
		wake:         make(chan struct{}, 1),
		quit:         make(chan struct{}),
		finished:     make(chan struct{}),
		log:          log,
	}
	go p.loop()
	log.WithFields(logrus.Fields{"width": opts.Width, "height": opts.Height}).Info("effect player created")
	return p, nil
}

// SurfaceChanged resizes the offscreen surface. Non-positive sizes are ignored.
func (p *Player) SurfaceChanged(w, h int) {
	if w <= 0 || h <= 0 {
		return
	}
	p.mu.Lock()
	changed := p.width != w || p.height != h
	p.width, p.height = w, h
	p.mu.Unlock()
	if changed {
		p.log.WithFields(logrus.Fields{"width": w, "height": h}).Debug("surface changed")
	}
}

// Surface returns the current surface size.
func (p *Player) Surface() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

// LoadEffect selects the effect by name. "" or "none" unloads the current one.
func (p *Player) LoadEffect(name string) error {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, "none") {
		name = ""
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if name != "" && len(p.resourceDirs) > 0 {
		if _, ok := findEffect(p.resourceDirs, name); !ok {
			return fmt.Errorf("%w: %q", ErrEffectNotFound, name)
		}
	}
	p.effect = name
	p.log.WithField("effect", name).Info("effect loaded")
	return nil
}

func findEffect(dirs []string, name string) (string, bool) {
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", false
	}
	for _, dir := range dirs {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// Effect returns the loaded effect name, empty when none.
func (p *Player) Effect() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.effect
}

// ProcessImage queues img for rendering. done is called on the render
// goroutine with the upright frame sized to the surface, flipped left to right
// when mirror is set. A paused player drops the image and returns nil.
func (p *Player) ProcessImage(img codec.Image, rot orient.Rotation, mirror bool, done func(codec.Frame)) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.paused {
		p.mu.Unlock()
		p.dropped.Add(1)
		return nil
	}
	if p.pending != nil {
		p.dropped.Add(1)
	}
	p.pending = &job{img: img, rot: rot, mirror: mirror, done: done}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pause stops rendering until Resume. Queued work is discarded.
func (p *Player) Pause() {
	p.mu.Lock()
	p.paused = true
	if p.pending != nil {
		p.pending = nil
		p.dropped.Add(1)
	}
	p.mu.Unlock()
}

// Resume restarts rendering after Pause.
func (p *Player) Resume() {
	p.mu.Lock()
	p.paused = false
	p.mu.Unlock()
}

// Paused reports whether the player is paused.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Stats returns a snapshot of the frame counters.
func (p *Player) Stats() Stats {
	return Stats{
		Rendered: p.rendered.Load(),
		Dropped:  p.dropped.Load(),
		Failed:   p.failed.Load(),
	}
}

// Close stops the render goroutine and waits for it. Pending work is dropped.
func (p *Player) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.pending = nil
		p.mu.Unlock()
		close(p.quit)
		<-p.finished
		p.log.Info("effect player closed")
	})
}

func (p *Player) loop() {
	defer close(p.finished)
	for {
		select {
		case <-p.quit:
			return
		case <-p.wake:
		}

		p.mu.Lock()
		j := p.pending
		p.pending = nil
		w, h := p.width, p.height
		p.mu.Unlock()
		if j == nil {
			continue
		}

		out, err := render(j.img, j.rot, j.mirror, w, h)
		if err != nil {
			p.failed.Add(1)
			p.log.WithError(err).Debug("render failed")
			continue
		}
		p.rendered.Add(1)
		if j.done != nil {
			complete(j.done, out, p.log)
		}
	}
}

func complete(done func(codec.Frame), f codec.Frame, log *logrus.Entry) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("completion panicked")
		}
	}()
	done(f)
}

// render decodes the tagged image, turns it upright, mirrors it for the front
// camera and fits it to the surface.
func render(img codec.Image, rot orient.Rotation, mirror bool, w, h int) (codec.Frame, error) {
	f, err := img.ToFrame()
	if err != nil {
		return codec.Frame{}, err
	}
	f = codec.Rotate(f, rot)
	if mirror {
		f = codec.MirrorHorizontal(f)
	}
	return codec.Fit(f, w, h)
}
