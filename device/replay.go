package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/svanichkin/effectcam/codec"
	"github.com/svanichkin/effectcam/logs"
)

// StartReplayStream plays back a recording made with codec.Recorder as if it
// came from the camera. Frames are paced by their recorded timestamps; fps > 0
// overrides that with a fixed rate. The channel closes at the end of the file.
func StartReplayStream(ctx context.Context, path string, fps int) (<-chan codec.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("replay open: %w", err)
	}
	rp, err := codec.NewReplay(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("replay %s: %w", path, err)
	}
	out := make(chan codec.Frame, 2)
	go func() {
		defer close(out)
		defer f.Close()
		defer rp.Close()
		n, err := replayFrames(ctx, rp, out, fps)
		log := logs.Component("replay").WithField("frames", n)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("replay stopped")
			return
		}
		log.Info("replay finished")
	}()
	return out, nil
}

func replayFrames(ctx context.Context, rp *codec.Replay, out chan<- codec.Frame, fps int) (int, error) {
	var (
		prev time.Time
		n    int
	)
	fixed := time.Duration(0)
	if fps > 0 {
		fixed = time.Second / time.Duration(fps)
	}
	for {
		rec, err := rp.Next()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		delay := frameDelay(prev, rec.At, fixed)
		prev = rec.At
		if n > 0 && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return n, ctx.Err()
			case <-timer.C:
			}
		}
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		case out <- rec.Frame:
			n++
		}
	}
}

// maxReplayGap bounds the pause between two recorded frames.
const maxReplayGap = time.Second

// frameDelay is the wait before the frame stamped at. A fixed rate wins over
// timestamps; recorded gaps are clamped to [0, maxReplayGap].
func frameDelay(prev, at time.Time, fixed time.Duration) time.Duration {
	if fixed > 0 {
		return fixed
	}
	if prev.IsZero() {
		return 0
	}
	return min(max(at.Sub(prev), 0), maxReplayGap)
}
