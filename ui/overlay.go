package ui

import (
	"strings"
	"sync"
)

var (
	overlayMu     sync.RWMutex
	overlaySource func() string

	statusMu      sync.RWMutex
	statusMessage string
)

// SetOverlaySource installs a callback queried on every redraw for the
// status-line details (orientation, rotation, counters).
func SetOverlaySource(fn func() string) {
	overlayMu.Lock()
	overlaySource = fn
	overlayMu.Unlock()
	RequestRedraw()
}

func overlayText() string {
	overlayMu.RLock()
	fn := overlaySource
	overlayMu.RUnlock()
	if fn == nil {
		return ""
	}
	return fn()
}

// SetStatusMessage updates the text shown in the status line, and in the
// middle of the screen while no frame has arrived. Pass "" to clear it.
func SetStatusMessage(msg string) {
	statusMu.Lock()
	statusMessage = strings.TrimSpace(msg)
	statusMu.Unlock()
	RequestRedraw()
}

func currentStatusMessage() string {
	statusMu.RLock()
	defer statusMu.RUnlock()
	return statusMessage
}

func composeStatusLine() string {
	parts := make([]string, 0, 3)
	if msg := currentStatusMessage(); msg != "" {
		parts = append(parts, msg)
	}
	if o := overlayText(); o != "" {
		parts = append(parts, o)
	}
	if f, _, _ := frameSnapshot(); f != nil {
		parts = append(parts, fps.label())
	}
	return strings.Join(parts, " · ")
}
