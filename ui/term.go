package ui

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/image/draw"

	"github.com/svanichkin/effectcam/codec"
	"github.com/svanichkin/effectcam/device"
	"github.com/svanichkin/effectcam/logs"
)

// Terminal cell aspect: one character cell is ~0.38 width of its height.
// We use it to compare "visual" width vs height.
const termCellWidthToHeight = 0.38

// Each cell shows two stacked pixels through the upper half block.
const halfBlock = '▀'

const statusRows = 1

var termRendererOnce sync.Once

// UI invalidation channel: request re-render when frames or size change.
var redrawCh = make(chan struct{}, 1)

var minRedrawInterval atomic.Int64

type colorFilterSpec struct {
	key      string
	tint     [3]int
	strength float64
	contrast float64
}

var colorFilterPresets = map[string]*colorFilterSpec{
	"red":    {key: "red", tint: [3]int{255, 0, 0}, strength: 1.0, contrast: 1.3},
	"orange": {key: "orange", tint: [3]int{255, 128, 0}, strength: 1.0, contrast: 1.3},
	"yellow": {key: "yellow", tint: [3]int{255, 255, 0}, strength: 1.0, contrast: 1.3},
	"green":  {key: "green", tint: [3]int{0, 255, 0}, strength: 1.0, contrast: 1.3},
	"teal":   {key: "teal", tint: [3]int{0, 255, 255}, strength: 1.0, contrast: 1.3},
	"blue":   {key: "blue", tint: [3]int{0, 0, 255}, strength: 1.0, contrast: 1.3},
	"purple": {key: "purple", tint: [3]int{255, 0, 255}, strength: 1.0, contrast: 1.3},
	"pink":   {key: "pink", tint: [3]int{255, 64, 160}, strength: 1.0, contrast: 1.3},
	"gray":   {key: "gray", tint: [3]int{255, 255, 255}, strength: 1.0, contrast: 1.3},
	"bw":     {key: "bw", tint: [3]int{255, 255, 255}, strength: 1.0, contrast: 1.3},
}

var activeColorFilter atomic.Pointer[colorFilterSpec]

var (
	frameFeedMu sync.RWMutex
	frameFeed   chan *device.TerminalFrame
)

func setFrameFeed(ch chan *device.TerminalFrame) {
	frameFeedMu.Lock()
	frameFeed = ch
	frameFeedMu.Unlock()
}

func enqueueFrame(tf *device.TerminalFrame) {
	if tf == nil {
		return
	}
	frameFeedMu.RLock()
	ch := frameFeed
	frameFeedMu.RUnlock()
	if ch == nil {
		return
	}
	select {
	case ch <- tf:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- tf:
		default:
		}
	}
}

// RequestRedraw enqueues a redraw event for the terminal renderer.
func RequestRedraw() {
	select {
	case redrawCh <- struct{}{}:
	default:
	}
}

// SetColorFilter applies a named tint to subsequent frame renders. Empty key clears the filter.
func SetColorFilter(key string) {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if spec, ok := colorFilterPresets[normalized]; ok {
		activeColorFilter.Store(spec)
	} else {
		activeColorFilter.Store(nil)
	}
	RequestRedraw()
}

// SetMaxFPS caps how often the screen is redrawn. Zero removes the cap.
func SetMaxFPS(n int) {
	if n <= 0 {
		minRedrawInterval.Store(0)
		return
	}
	minRedrawInterval.Store(int64(time.Second / time.Duration(n)))
}

// EnsureRenderer starts the terminal renderer loop once. Subsequent calls are
// no-ops. The returned channel closes when the renderer has restored the
// terminal.
func EnsureRenderer(ctx context.Context) <-chan struct{} {
	if ctx == nil {
		ctx = context.Background()
	}
	var done <-chan struct{}
	termRendererOnce.Do(func() {
		done = startTermImgRenderer(ctx)
	})
	return done
}

func startTermImgRenderer(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	frameCh := make(chan *device.TerminalFrame, 2)
	setFrameFeed(frameCh)

	terminal, err := device.StartTerminal(frameCh, ctx.Done(), nil)
	if err != nil {
		logs.LogV("[term] renderer failed: %v", err)
		setFrameFeed(nil)
		close(done)
		return done
	}

	go func() {
		defer close(done)
		defer func() {
			setFrameFeed(nil)
			<-terminal.Done()
		}()

		var (
			lastCols, lastRows int
			lastDraw           time.Time
			deferred           bool
		)
		tick := time.NewTicker(50 * time.Millisecond) // periodic poll to react quickly to terminal resizes
		defer tick.Stop()

		paint := func() {
			lastDraw = time.Now()
			deferred = false
			renderScreen()
		}
		paint()

		for {
			select {
			case <-ctx.Done():
				return
			case <-redrawCh:
				if gap := time.Duration(minRedrawInterval.Load()); gap > 0 && time.Since(lastDraw) < gap {
					deferred = true
					continue
				}
				paint()
			case <-tick.C:
				cols, rows, err := device.GetTermSize()
				if err != nil {
					continue
				}
				if cols != lastCols || rows != lastRows {
					lastCols, lastRows = cols, rows
					paint()
					continue
				}
				if deferred {
					paint()
				}
			}
		}
	}()
	return done
}

func renderScreen() {
	cols, rows, err := device.GetTermSize()
	if err != nil || cols <= 0 || rows <= statusRows {
		return
	}
	frame, _, _ := frameSnapshot()
	var data string
	if frame == nil {
		data = buildStatusScreen(cols, rows, currentStatusMessage())
	} else {
		data = buildFrameScreen(cols, rows, *frame, composeStatusLine())
	}
	enqueueFrame(&device.TerminalFrame{Data: data})
}

// fitCells returns the cell grid (cols x pixel rows) that shows a w x h frame
// without distortion inside maxCols x maxPixRows. Pixel rows are two per cell.
func fitCells(w, h, maxCols, maxPixRows int) (int, int) {
	if w <= 0 || h <= 0 || maxCols <= 0 || maxPixRows <= 0 {
		return 0, 0
	}
	pixAspect := termCellWidthToHeight * 2 // width of a half-block pixel over its height
	aspect := float64(w) / float64(h)
	cols := maxCols
	pixRows := int(float64(cols)*pixAspect/aspect + 0.5)
	if pixRows > maxPixRows {
		pixRows = maxPixRows
		cols = int(float64(pixRows)*aspect/pixAspect + 0.5)
	}
	return max(1, min(cols, maxCols)), max(1, pixRows)
}

func buildFrameScreen(cols, rows int, frame codec.Frame, status string) string {
	var sb strings.Builder
	sb.WriteString("\x1b[0m\x1b[2J")

	canvasRows := rows - statusRows
	fitCols, pixRows := fitCells(frame.Width, frame.Height, cols, canvasRows*2)
	if fitCols > 0 && frame.Valid() {
		dst := image.NewRGBA(image.Rect(0, 0, fitCols, pixRows))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), codec.ToImage(frame), image.Rect(0, 0, frame.Width, frame.Height), draw.Src, nil)
		cellRows := (pixRows + 1) / 2
		startRow := (canvasRows-cellRows)/2 + 1
		startCol := (cols-fitCols)/2 + 1
		writeHalfBlocks(&sb, dst, startRow, startCol)
	}
	writeStatusLine(&sb, rows, cols, status)
	return sb.String()
}

func writeHalfBlocks(sb *strings.Builder, img *image.RGBA, startRow, startCol int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	for y := 0; y < h; y += 2 {
		fmt.Fprintf(sb, "\x1b[%d;%dH", startRow+y/2, startCol)
		var lastFg, lastBg [3]int
		first := true
		for x := 0; x < w; x++ {
			fg := pixelRGB(img, x, y)
			bg := [3]int{0, 0, 0}
			if y+1 < h {
				bg = pixelRGB(img, x, y+1)
			}
			if first || fg != lastFg {
				fmt.Fprintf(sb, "\x1b[38;2;%d;%d;%dm", fg[0], fg[1], fg[2])
				lastFg = fg
			}
			if first || bg != lastBg {
				fmt.Fprintf(sb, "\x1b[48;2;%d;%d;%dm", bg[0], bg[1], bg[2])
				lastBg = bg
			}
			first = false
			sb.WriteRune(halfBlock)
		}
		sb.WriteString("\x1b[0m")
	}
}

func pixelRGB(img *image.RGBA, x, y int) [3]int {
	i := img.PixOffset(x, y)
	r, g, b := applyColorFilter(int(img.Pix[i]), int(img.Pix[i+1]), int(img.Pix[i+2]))
	return [3]int{r, g, b}
}

func writeStatusLine(sb *strings.Builder, row, cols int, status string) {
	fmt.Fprintf(sb, "\x1b[%d;1H\x1b[0m\x1b[2K", row)
	sb.WriteString(truncateRunes(status, cols))
}

func buildStatusScreen(cols, rows int, message string) string {
	var sb strings.Builder
	sb.WriteString("\x1b[0m\x1b[2J")
	if message == "" {
		return sb.String()
	}
	lines := strings.Split(message, "\n")
	top := max(1, (rows-len(lines))/2+1)
	for i, line := range lines {
		line = truncateRunes(line, cols)
		col := max(1, (cols-runeCount(line))/2+1)
		fmt.Fprintf(&sb, "\x1b[%d;%dH%s", top+i, col, line)
	}
	return sb.String()
}

func applyColorFilter(r, g, b int) (int, int, int) {
	spec := activeColorFilter.Load()
	if spec == nil {
		return r, g, b
	}
	return spec.apply(r, g, b)
}

func (cf *colorFilterSpec) apply(r, g, b int) (int, int, int) {
	if cf == nil {
		return r, g, b
	}
	luminance := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	contrast := cf.contrast
	if contrast <= 0 {
		contrast = 1
	}
	adj := clampColor((luminance-128)*contrast + 128)
	mono := float64(adj)
	strength := cf.strength
	if strength <= 0 {
		strength = 0.5
	}
	if strength > 1 {
		strength = 1
	}
	intensity := mono / 255.0
	colorMix := func(target int) int {
		colorComponent := float64(target) * intensity
		baseComponent := mono * (1 - strength)
		return clampColor(baseComponent + colorComponent*strength)
	}
	return colorMix(cf.tint[0]), colorMix(cf.tint[1]), colorMix(cf.tint[2])
}

func clampColor(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return int(v + 0.5)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

func runeCount(s string) int {
	return len([]rune(s))
}
