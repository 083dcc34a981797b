package codec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBadFrame      = errors.New("bad frame")
	ErrUnknownFormat = errors.New("unknown image format")
)

// Frame represents a raw YCbCr 4:4:4 image (packed as [Y Cb Cr]), the layout
// the camera backend delivers.
type Frame struct {
	Data          []byte
	Width, Height int
}

// Valid reports whether the frame has positive dimensions and enough data.
func (f Frame) Valid() bool {
	return f.Width > 0 && f.Height > 0 && len(f.Data) >= f.Width*f.Height*3
}

// Clone returns a deep copy of f.
func (f Frame) Clone() Frame {
	out := Frame{Width: f.Width, Height: f.Height, Data: make([]byte, len(f.Data))}
	copy(out.Data, f.Data)
	return out
}

// BlackFrame returns a video-range black frame (Y=16, Cb=Cr=128).
func BlackFrame(w, h int) Frame {
	if w <= 0 || h <= 0 {
		return Frame{}
	}
	buf := make([]byte, w*h*3)
	for i := 0; i < len(buf); i += 3 {
		buf[i] = 16
		buf[i+1] = 128
		buf[i+2] = 128
	}
	return Frame{Data: buf, Width: w, Height: h}
}

// ImageFormat is the tag the effect player receives alongside a frame.
type ImageFormat string

const (
	FormatI420 ImageFormat = "i420"
	FormatNV12 ImageFormat = "NV12"
)

// ParseImageFormat accepts "i420" and "nv12" in any case.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "i420", "yuv420p":
		return FormatI420, nil
	case "nv12":
		return FormatNV12, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Image is a planar 4:2:0 picture: three planes (Y, U, V) for i420, two
// (Y, interleaved UV) for NV12.
type Image struct {
	Format        ImageFormat
	Width, Height int
	Planes        [][]byte
	Strides       []int
}

func chromaSize(w, h int) (int, int) {
	return (w + 1) / 2, (h + 1) / 2
}

// ConvertTo420 subsamples a packed 4:4:4 frame into the requested planar
// format. Chroma is the average of each 2x2 block; odd edges repeat the last
// row or column.
func ConvertTo420(f Frame, format ImageFormat) (Image, error) {
	if !f.Valid() {
		return Image{}, ErrBadFrame
	}
	w, h := f.Width, f.Height
	cw, ch := chromaSize(w, h)

	y := make([]byte, w*h)
	u := make([]byte, cw*ch)
	v := make([]byte, cw*ch)
	for i := 0; i < w*h; i++ {
		y[i] = f.Data[i*3]
	}
	for cy := 0; cy < ch; cy++ {
		for cx := 0; cx < cw; cx++ {
			var sumCb, sumCr int
			for dy := 0; dy < 2; dy++ {
				sy := min(cy*2+dy, h-1)
				for dx := 0; dx < 2; dx++ {
					sx := min(cx*2+dx, w-1)
					idx := (sy*w + sx) * 3
					sumCb += int(f.Data[idx+1])
					sumCr += int(f.Data[idx+2])
				}
			}
			u[cy*cw+cx] = byte((sumCb + 2) / 4)
			v[cy*cw+cx] = byte((sumCr + 2) / 4)
		}
	}

	switch format {
	case FormatI420:
		return Image{
			Format:  FormatI420,
			Width:   w,
			Height:  h,
			Planes:  [][]byte{y, u, v},
			Strides: []int{w, cw, cw},
		}, nil
	case FormatNV12:
		uv := make([]byte, cw*ch*2)
		for i := range u {
			uv[i*2] = u[i]
			uv[i*2+1] = v[i]
		}
		return Image{
			Format:  FormatNV12,
			Width:   w,
			Height:  h,
			Planes:  [][]byte{y, uv},
			Strides: []int{w, cw * 2},
		}, nil
	default:
		return Image{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// ToFrame expands a planar image back into a packed 4:4:4 frame, repeating
// each chroma sample over its 2x2 block.
func (img Image) ToFrame() (Frame, error) {
	w, h := img.Width, img.Height
	if w <= 0 || h <= 0 {
		return Frame{}, ErrBadFrame
	}
	cw, ch := chromaSize(w, h)

	var chroma func(cx, cy int) (byte, byte)
	switch img.Format {
	case FormatI420:
		if len(img.Planes) != 3 || len(img.Strides) != 3 {
			return Frame{}, fmt.Errorf("%w: i420 needs 3 planes", ErrBadFrame)
		}
		if len(img.Planes[1]) < img.Strides[1]*(ch-1)+cw || len(img.Planes[2]) < img.Strides[2]*(ch-1)+cw {
			return Frame{}, fmt.Errorf("%w: short chroma plane", ErrBadFrame)
		}
		chroma = func(cx, cy int) (byte, byte) {
			return img.Planes[1][cy*img.Strides[1]+cx], img.Planes[2][cy*img.Strides[2]+cx]
		}
	case FormatNV12:
		if len(img.Planes) != 2 || len(img.Strides) != 2 {
			return Frame{}, fmt.Errorf("%w: NV12 needs 2 planes", ErrBadFrame)
		}
		if len(img.Planes[1]) < img.Strides[1]*(ch-1)+cw*2 {
			return Frame{}, fmt.Errorf("%w: short chroma plane", ErrBadFrame)
		}
		chroma = func(cx, cy int) (byte, byte) {
			off := cy*img.Strides[1] + cx*2
			return img.Planes[1][off], img.Planes[1][off+1]
		}
	default:
		return Frame{}, fmt.Errorf("%w: %q", ErrUnknownFormat, img.Format)
	}
	if len(img.Planes[0]) < img.Strides[0]*(h-1)+w {
		return Frame{}, fmt.Errorf("%w: short luma plane", ErrBadFrame)
	}

	out := Frame{Width: w, Height: h, Data: make([]byte, w*h*3)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cb, cr := chroma(x/2, y/2)
			idx := (y*w + x) * 3
			out.Data[idx] = img.Planes[0][y*img.Strides[0]+x]
			out.Data[idx+1] = cb
			out.Data[idx+2] = cr
		}
	}
	return out, nil
}
