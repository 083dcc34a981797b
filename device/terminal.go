package device

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// TerminalFrame carries a fully prepared ANSI payload that the terminal driver
// should print verbatim.
type TerminalFrame struct {
	Data string
}

// Terminal represents a running terminal output device.
type Terminal struct {
	out  io.Writer
	done chan struct{}
}

// StartTerminal launches a goroutine that consumes frames from frameIn and
// writes them to stdout until stopCh is closed or the frame channel closes.
func StartTerminal(frameIn <-chan *TerminalFrame, stopCh <-chan struct{}, onStop func()) (*Terminal, error) {
	return StartTerminalOn(os.Stdout, frameIn, stopCh, onStop)
}

// StartTerminalOn is StartTerminal with an explicit output.
func StartTerminalOn(out io.Writer, frameIn <-chan *TerminalFrame, stopCh <-chan struct{}, onStop func()) (*Terminal, error) {
	if out == nil {
		return nil, fmt.Errorf("terminal output is nil")
	}
	if frameIn == nil {
		return nil, fmt.Errorf("frame channel is nil")
	}
	if stopCh == nil {
		return nil, fmt.Errorf("stop channel is nil")
	}

	t := &Terminal{out: out, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		enterAltScreen(out)
		defer exitAltScreen(out)

		for {
			select {
			case <-stopCh:
				if onStop != nil {
					onStop()
				}
				return
			case frame, ok := <-frameIn:
				if !ok {
					if onStop != nil {
						onStop()
					}
					return
				}
				if frame == nil || frame.Data == "" {
					continue
				}
				beginSyncOutput(out)
				io.WriteString(out, frame.Data)
				endSyncOutput(out)
			}
		}
	}()

	return t, nil
}

// Done returns a channel that closes when the terminal driver stops.
func (t *Terminal) Done() <-chan struct{} {
	if t == nil {
		return nil
	}
	return t.done
}

// synchronized output mode (DEC 2026) keeps a frame from tearing mid-draw
func beginSyncOutput(w io.Writer) {
	if supportsSyncOutput {
		io.WriteString(w, "\x1b[?2026h")
	}
}

func endSyncOutput(w io.Writer) {
	if supportsSyncOutput {
		io.WriteString(w, "\x1b[?2026l")
	}
}

func enterAltScreen(w io.Writer) {
	io.WriteString(w, "\x1b[?1049h\x1b[?25l\x1b[?7l\x1b[3J\x1b[H")
}

func exitAltScreen(w io.Writer) {
	io.WriteString(w, "\x1b[0m\x1b[?7h\x1b[?25h\x1b[?1049l")
}

// GetTermSize queries the current terminal size in character cells using stdout.
func GetTermSize() (cols, rows int, err error) {
	cols, rows, err = term.GetSize(int(os.Stdout.Fd()))
	return
}

// IsInteractive reports whether both stdin and stdout are terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
