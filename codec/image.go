package codec

import (
	"image"
	"image/color"
	"io"

	"github.com/HugoSmits86/nativewebp"
)

// ToImage wraps a packed frame into an image.YCbCr with 4:4:4 sampling.
func ToImage(f Frame) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, f.Width, f.Height), image.YCbCrSubsampleRatio444)
	if !f.Valid() {
		return img
	}
	for i := 0; i < f.Width*f.Height; i++ {
		img.Y[i] = f.Data[i*3]
		img.Cb[i] = f.Data[i*3+1]
		img.Cr[i] = f.Data[i*3+2]
	}
	return img
}

// FromImage converts any image into a packed frame.
func FromImage(img image.Image) Frame {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := Frame{Width: w, Height: h, Data: make([]byte, w*h*3)}
	idx := 0
	if rgba, ok := img.(*image.RGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				p := rgba.PixOffset(x, y)
				yy, cb, cr := color.RGBToYCbCr(rgba.Pix[p], rgba.Pix[p+1], rgba.Pix[p+2])
				out.Data[idx], out.Data[idx+1], out.Data[idx+2] = yy, cb, cr
				idx += 3
			}
		}
		return out
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.YCbCrModel.Convert(img.At(x, y)).(color.YCbCr)
			out.Data[idx], out.Data[idx+1], out.Data[idx+2] = c.Y, c.Cb, c.Cr
			idx += 3
		}
	}
	return out
}

// ToNRGBA converts the frame for encoders that want straight RGBA.
func ToNRGBA(f Frame) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	if !f.Valid() {
		return out
	}
	for i := 0; i < f.Width*f.Height; i++ {
		r, g, b := color.YCbCrToRGB(f.Data[i*3], f.Data[i*3+1], f.Data[i*3+2])
		out.Pix[i*4] = r
		out.Pix[i*4+1] = g
		out.Pix[i*4+2] = b
		out.Pix[i*4+3] = 0xff
	}
	return out
}

// EncodeWebP writes the frame as a lossless WebP image.
func EncodeWebP(w io.Writer, f Frame) error {
	if !f.Valid() {
		return ErrBadFrame
	}
	return nativewebp.Encode(w, ToNRGBA(f), nil)
}
