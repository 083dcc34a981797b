package mediactrl

import (
	"sync"
	"sync/atomic"

	"github.com/svanichkin/effectcam/logs"
)

// State describes the capture switch and whether frames go through the
// effect player or straight to the screen.
type State struct {
	CaptureEnabled bool
	EffectEnabled  bool
}

var (
	captureEnabled atomic.Bool
	effectEnabled  atomic.Bool
)

func init() {
	captureEnabled.Store(true)
	effectEnabled.Store(true)
}

// CaptureEnabled reports whether camera frames are being consumed.
func CaptureEnabled() bool {
	return captureEnabled.Load()
}

// EffectEnabled reports whether frames are routed through the effect player.
func EffectEnabled() bool {
	return effectEnabled.Load()
}

// SetCaptureEnabled updates the capture switch and notifies listeners.
func SetCaptureEnabled(enabled bool) {
	if captureEnabled.Swap(enabled) == enabled {
		return
	}
	notifyListeners()
}

// ToggleCapture flips the capture state and returns the new value.
func ToggleCapture() bool {
	for {
		current := captureEnabled.Load()
		next := !current
		if captureEnabled.CompareAndSwap(current, next) {
			notifyListeners()
			return next
		}
	}
}

// SetEffectEnabled updates the effect switch and notifies listeners.
func SetEffectEnabled(enabled bool) {
	if effectEnabled.Swap(enabled) == enabled {
		return
	}
	notifyListeners()
}

// ToggleEffect flips the effect switch and returns the new value.
func ToggleEffect() bool {
	for {
		current := effectEnabled.Load()
		next := !current
		if effectEnabled.CompareAndSwap(current, next) {
			notifyListeners()
			return next
		}
	}
}

// StateSnapshot returns a copy of the current switches.
func StateSnapshot() State {
	return State{
		CaptureEnabled: captureEnabled.Load(),
		EffectEnabled:  effectEnabled.Load(),
	}
}

var (
	listenerMu sync.Mutex
	listeners  = make(map[int]func(State))
	nextID     int
)

// Subscribe registers a callback invoked whenever either switch flips.
// It returns a function that removes the listener.
func Subscribe(fn func(State)) func() {
	if fn == nil {
		return func() {}
	}
	listenerMu.Lock()
	id := nextID
	nextID++
	listeners[id] = fn
	listenerMu.Unlock()
	return func() {
		listenerMu.Lock()
		delete(listeners, id)
		listenerMu.Unlock()
	}
}

func notifyListeners() {
	state := StateSnapshot()
	listenerMu.Lock()
	snapshot := make([]func(State), 0, len(listeners))
	for _, fn := range listeners {
		snapshot = append(snapshot, fn)
	}
	listenerMu.Unlock()
	for _, fn := range snapshot {
		func(cb func(State)) {
			defer func() {
				if r := recover(); r != nil {
					logs.LogV("[mediactrl] listener panic: %v", r)
				}
			}()
			cb(state)
		}(fn)
	}
}
