package codec

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svanichkin/effectcam/orient"
)

// gradientFrame fills Y with x+y*w so every pixel is distinguishable, and keeps
// chroma flat so 4:2:0 subsampling is lossless.
func gradientFrame(w, h int) Frame {
	f := Frame{Width: w, Height: h, Data: make([]byte, w*h*3)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			idx := (y*w + x) * 3
			f.Data[idx] = byte(x + y*w)
			f.Data[idx+1] = 100
			f.Data[idx+2] = 150
		}
	}
	return f
}

func lumaAt(f Frame, x, y int) byte {
	return f.Data[(y*f.Width+x)*3]
}

func TestConvertRoundTrip(t *testing.T) {
	src := gradientFrame(6, 4)
	for _, format := range []ImageFormat{FormatI420, FormatNV12} {
		img, err := ConvertTo420(src, format)
		require.NoError(t, err)
		assert.Equal(t, format, img.Format)

		back, err := img.ToFrame()
		require.NoError(t, err)
		assert.Equal(t, src, back, "format %s", format)
	}
}

func TestConvertPlaneLayout(t *testing.T) {
	src := gradientFrame(5, 3)
	img, err := ConvertTo420(src, FormatI420)
	require.NoError(t, err)
	require.Len(t, img.Planes, 3)
	assert.Len(t, img.Planes[0], 15)
	assert.Len(t, img.Planes[1], 6)
	assert.Equal(t, []int{5, 3, 3}, img.Strides)

	img, err = ConvertTo420(src, FormatNV12)
	require.NoError(t, err)
	require.Len(t, img.Planes, 2)
	assert.Len(t, img.Planes[1], 12)
	assert.Equal(t, byte(100), img.Planes[1][0])
	assert.Equal(t, byte(150), img.Planes[1][1])
}

func TestConvertChromaAverage(t *testing.T) {
	f := Frame{Width: 2, Height: 2, Data: []byte{
		0, 0, 0, 0, 100, 100,
		0, 100, 100, 0, 200, 200,
	}}
	img, err := ConvertTo420(f, FormatI420)
	require.NoError(t, err)
	assert.Equal(t, byte(100), img.Planes[1][0])
	assert.Equal(t, byte(100), img.Planes[2][0])
}

func TestConvertErrors(t *testing.T) {
	_, err := ConvertTo420(Frame{}, FormatI420)
	assert.ErrorIs(t, err, ErrBadFrame)

	_, err = ConvertTo420(gradientFrame(2, 2), ImageFormat("rgb"))
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Image{Format: FormatI420, Width: 2, Height: 2, Planes: [][]byte{{1}}, Strides: []int{2}}.ToFrame()
	assert.ErrorIs(t, err, ErrBadFrame)
}

func TestParseImageFormat(t *testing.T) {
	f, err := ParseImageFormat("NV12")
	require.NoError(t, err)
	assert.Equal(t, FormatNV12, f)
	f, err = ParseImageFormat(" I420 ")
	require.NoError(t, err)
	assert.Equal(t, FormatI420, f)
	_, err = ParseImageFormat("bgra")
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestRotate(t *testing.T) {
	src := gradientFrame(3, 2)

	r90 := Rotate(src, orient.Deg90)
	require.Equal(t, 2, r90.Width)
	require.Equal(t, 3, r90.Height)
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			assert.Equal(t, lumaAt(src, x, y), lumaAt(r90, src.Height-1-y, x))
		}
	}

	r180 := Rotate(src, orient.Deg180)
	assert.Equal(t, lumaAt(src, 0, 0), lumaAt(r180, 2, 1))

	r270 := Rotate(src, orient.Deg270)
	assert.Equal(t, lumaAt(src, 0, 0), lumaAt(r270, 0, 2))

	assert.Equal(t, src, Rotate(Rotate(r90, orient.Deg180), orient.Deg90))
	assert.Equal(t, src, Rotate(src, orient.Deg0))
}

func TestMirrorHorizontal(t *testing.T) {
	src := gradientFrame(3, 2)
	m := MirrorHorizontal(src)
	assert.Equal(t, lumaAt(src, 0, 1), lumaAt(m, 2, 1))
	assert.Equal(t, src, MirrorHorizontal(m))
}

func TestCenterCropAndFit(t *testing.T) {
	src := gradientFrame(8, 4)
	c := CenterCropToAspect(src, 1, 1)
	assert.Equal(t, 4, c.Width)
	assert.Equal(t, 4, c.Height)
	assert.Equal(t, lumaAt(src, 2, 0), lumaAt(c, 0, 0))

	fit, err := Fit(src, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, fit.Width)
	assert.Equal(t, 2, fit.Height)
	assert.Len(t, fit.Data, 12)

	_, err = Scale(Frame{}, 2, 2)
	assert.ErrorIs(t, err, ErrBadFrame)
}

func TestImageBridge(t *testing.T) {
	black := BlackFrame(4, 2)
	img := ToImage(black)
	assert.Equal(t, 4, img.Bounds().Dx())

	nrgba := ToNRGBA(black)
	r, g, b, a := nrgba.At(1, 1).RGBA()
	assert.Less(t, r>>8, uint32(24))
	assert.Less(t, g>>8, uint32(24))
	assert.Less(t, b>>8, uint32(24))
	assert.Equal(t, uint32(0xffff), a)

	back := FromImage(img)
	assert.Equal(t, black, back)
}

func TestEncodeWebP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeWebP(&buf, gradientFrame(4, 4)))
	require.Greater(t, buf.Len(), 12)
	assert.Equal(t, "RIFF", buf.String()[:4])
	assert.Equal(t, "WEBP", buf.String()[8:12])

	assert.ErrorIs(t, EncodeWebP(&buf, Frame{}), ErrBadFrame)
}

func TestRecorderReplay(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf)
	require.NoError(t, err)

	at := time.Unix(1700000000, 42)
	frames := []Frame{gradientFrame(4, 2), gradientFrame(2, 3)}
	require.NoError(t, rec.WriteFrame(frames[0], orient.Deg90, at))
	require.NoError(t, rec.WriteFrame(frames[1], orient.Deg270, at.Add(time.Second)))
	assert.ErrorIs(t, rec.WriteFrame(Frame{}, orient.Deg0, at), ErrBadFrame)
	assert.Equal(t, 2, rec.Frames())
	require.NoError(t, rec.Close())
	assert.Error(t, rec.WriteFrame(frames[0], orient.Deg0, at))

	assert.Equal(t, RecordMagic, buf.String()[:4])

	rp, err := NewReplay(&buf)
	require.NoError(t, err)
	defer rp.Close()

	first, err := rp.Next()
	require.NoError(t, err)
	assert.Equal(t, frames[0], first.Frame)
	assert.Equal(t, orient.Deg90, first.Rotation)
	assert.True(t, at.Equal(first.At))

	second, err := rp.Next()
	require.NoError(t, err)
	assert.Equal(t, frames[1], second.Frame)
	assert.Equal(t, orient.Deg270, second.Rotation)

	_, err = rp.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReplayRejectsGarbage(t *testing.T) {
	_, err := NewReplay(bytes.NewReader([]byte("NOPE\x01")))
	assert.ErrorIs(t, err, ErrBadRecording)

	_, err = NewReplay(bytes.NewReader([]byte("ECAM\x07")))
	assert.ErrorIs(t, err, ErrBadRecording)

	_, err = NewReplay(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrBadRecording)
}
