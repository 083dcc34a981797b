package ui

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/svanichkin/effectcam/logs"
	"github.com/svanichkin/effectcam/mediactrl"
	"github.com/svanichkin/effectcam/orient"
)

// KeyHandlers are the actions bound to the keyboard. Nil handlers are skipped.
type KeyHandlers struct {
	SetDevice func(orient.DeviceOrientation)
	Rotate    func()
	Snapshot  func()
	Quit      func()
}

var keyReaderOnce sync.Once

// StartKeyReader puts stdin into unbuffered mode and dispatches key presses
// until ctx is done. It does nothing when stdio is not a terminal.
func StartKeyReader(ctx context.Context, h KeyHandlers) {
	if ctx == nil {
		ctx = context.Background()
	}
	keyReaderOnce.Do(func() {
		stdinFD := int(os.Stdin.Fd())
		stdoutFD := int(os.Stdout.Fd())
		if !term.IsTerminal(stdinFD) || !term.IsTerminal(stdoutFD) {
			logs.LogV("[term] key reader disabled: stdio is not a TTY")
			return
		}

		restore, err := prepareTTYForKeys(stdinFD)
		if err != nil {
			logs.LogV("[term] key reader disabled: %v", err)
			return
		}

		go func() {
			<-ctx.Done()
			if restore != nil {
				restore()
			}
		}()

		go keyEventLoop(ctx, os.Stdin, h)
	})
}

func keyEventLoop(ctx context.Context, r io.Reader, h KeyHandlers) {
	reader := bufio.NewReader(r)
	for {
		b, err := reader.ReadByte()
		if err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if b == 0x1b { // ESC
			skipEscapeSequence(reader)
			continue
		}
		if !handleKey(b, h) {
			return
		}
	}
}

// skipEscapeSequence consumes a CSI sequence such as an arrow key so its
// bytes are not read as commands.
func skipEscapeSequence(r *bufio.Reader) {
	if r.Buffered() == 0 {
		return
	}
	next, err := r.ReadByte()
	if err != nil || next != '[' {
		return
	}
	for r.Buffered() > 0 {
		b, err := r.ReadByte()
		if err != nil || (b >= 0x40 && b <= 0x7e) {
			return
		}
	}
}

// handleKey runs the action bound to b. It returns false once the key loop
// should stop.
func handleKey(b byte, h KeyHandlers) bool {
	switch b {
	case '1':
		setDevice(h, orient.DevicePortrait)
	case '2':
		setDevice(h, orient.DevicePortraitUpsideDown)
	case '3':
		setDevice(h, orient.DeviceLandscapeLeft)
	case '4':
		setDevice(h, orient.DeviceLandscapeRight)
	case 'r', 'R':
		if h.Rotate != nil {
			h.Rotate()
		}
	case 'e', 'E':
		if mediactrl.ToggleEffect() {
			logs.LogV("[ui] effect enabled via key")
			SetStatusMessage("effect on")
		} else {
			logs.LogV("[ui] effect bypassed via key")
			SetStatusMessage("effect off")
		}
	case 'c', 'C':
		if mediactrl.ToggleCapture() {
			logs.LogV("[ui] capture resumed via key")
			SetStatusMessage("")
		} else {
			logs.LogV("[ui] capture paused via key")
			SetStatusMessage("capture paused")
		}
	case 's', 'S':
		if h.Snapshot != nil {
			h.Snapshot()
		}
	case 'q', 'Q':
		if h.Quit != nil {
			h.Quit()
		}
		return false
	default:
		return true
	}
	RequestRedraw()
	return true
}

func setDevice(h KeyHandlers, d orient.DeviceOrientation) {
	if h.SetDevice != nil {
		h.SetDevice(d)
	}
}
