package codec

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/svanichkin/effectcam/orient"
)

// Rotate turns a frame clockwise by r. Pixel (x, y) of the source lands on
// (h-1-y, x) for a quarter turn.
func Rotate(f Frame, r orient.Rotation) Frame {
	if !f.Valid() {
		return f
	}
	w, h := f.Width, f.Height
	turns := r.QuarterTurns()
	if turns == 0 {
		return f.Clone()
	}

	outW, outH := w, h
	if turns%2 == 1 {
		outW, outH = h, w
	}
	out := Frame{Width: outW, Height: outH, Data: make([]byte, w*h*3)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch turns {
			case 1:
				dx, dy = h-1-y, x
			case 2:
				dx, dy = w-1-x, h-1-y
			default:
				dx, dy = y, w-1-x
			}
			src := (y*w + x) * 3
			dst := (dy*outW + dx) * 3
			copy(out.Data[dst:dst+3], f.Data[src:src+3])
		}
	}
	return out
}

// MirrorHorizontal flips the frame left to right.
func MirrorHorizontal(f Frame) Frame {
	if !f.Valid() {
		return f
	}
	out := Frame{Width: f.Width, Height: f.Height, Data: make([]byte, len(f.Data))}
	w := f.Width
	for y := 0; y < f.Height; y++ {
		row := y * w * 3
		for x := 0; x < w; x++ {
			src := row + x*3
			dst := row + (w-1-x)*3
			copy(out.Data[dst:dst+3], f.Data[src:src+3])
		}
	}
	return out
}

// CenterCropToAspect crops the frame to match targetW/targetH.
func CenterCropToAspect(f Frame, targetW, targetH int) Frame {
	inW, inH := f.Width, f.Height
	if !f.Valid() || targetW <= 0 || targetH <= 0 {
		return f
	}
	ta := float64(targetW) / float64(targetH)
	ia := float64(inW) / float64(inH)
	cropW, cropH := inW, inH
	if ia > ta {
		cropW = max(1, int(float64(inH)*ta))
	} else if ia < ta {
		cropH = max(1, int(float64(inW)/ta))
	}
	if cropW == inW && cropH == inH {
		return f
	}
	x0 := (inW - cropW) / 2
	y0 := (inH - cropH) / 2
	out := Frame{Width: cropW, Height: cropH, Data: make([]byte, cropW*cropH*3)}
	for y := 0; y < cropH; y++ {
		srcY := y0 + y
		copy(out.Data[y*cropW*3:(y+1)*cropW*3], f.Data[(srcY*inW+x0)*3:(srcY*inW+x0+cropW)*3])
	}
	return out
}

// Scale resamples the frame to outW x outH.
func Scale(f Frame, outW, outH int) (Frame, error) {
	if !f.Valid() || outW <= 0 || outH <= 0 {
		return Frame{}, ErrBadFrame
	}
	if f.Width == outW && f.Height == outH {
		return f, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), ToImage(f), image.Rect(0, 0, f.Width, f.Height), draw.Src, nil)
	return FromImage(dst), nil
}

// Fit crops f to the aspect of w x h and scales it to that size.
func Fit(f Frame, w, h int) (Frame, error) {
	return Scale(CenterCropToAspect(f, w, h), w, h)
}
