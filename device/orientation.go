package device

import (
	"sync"
	"sync/atomic"

	"github.com/svanichkin/effectcam/orient"
)

// Orientation holds the live device orientation. Rotation events call Set;
// the frame path calls Load once per frame.
type Orientation struct {
	current atomic.Int32

	// setMu orders writers so listeners see changes in the order they were
	// stored. Listeners must not call Set or Rotate.
	setMu sync.Mutex

	mu        sync.Mutex
	listeners map[int]func(orient.DeviceOrientation)
	nextID    int
}

// NewOrientation returns a holder starting at initial.
func NewOrientation(initial orient.DeviceOrientation) *Orientation {
	o := &Orientation{listeners: make(map[int]func(orient.DeviceOrientation))}
	o.current.Store(int32(initial))
	return o
}

// Load returns the current orientation.
func (o *Orientation) Load() orient.DeviceOrientation {
	return orient.DeviceOrientation(o.current.Load())
}

// Set records a rotation event. Listeners run only when the value changes.
func (o *Orientation) Set(d orient.DeviceOrientation) {
	o.setMu.Lock()
	defer o.setMu.Unlock()
	if orient.DeviceOrientation(o.current.Swap(int32(d))) == d {
		return
	}
	o.notify(d)
}

// Rotate advances to the next orientation clockwise and returns it.
func (o *Orientation) Rotate() orient.DeviceOrientation {
	o.setMu.Lock()
	defer o.setMu.Unlock()
	next := o.Load().Next()
	o.current.Store(int32(next))
	o.notify(next)
	return next
}

// Subscribe registers fn for orientation changes and returns a function that
// removes it.
func (o *Orientation) Subscribe(fn func(orient.DeviceOrientation)) func() {
	if fn == nil {
		return func() {}
	}
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners[id] = fn
	o.mu.Unlock()
	return func() {
		o.mu.Lock()
		delete(o.listeners, id)
		o.mu.Unlock()
	}
}

func (o *Orientation) notify(d orient.DeviceOrientation) {
	o.mu.Lock()
	snapshot := make([]func(orient.DeviceOrientation), 0, len(o.listeners))
	for _, fn := range o.listeners {
		snapshot = append(snapshot, fn)
	}
	o.mu.Unlock()
	for _, fn := range snapshot {
		fn(d)
	}
}
