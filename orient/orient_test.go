package orient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type facingPair struct {
	back, front int
}

// expected rotation (back, front) per output, keyed by device orientation.
// DeviceLandscapeLeft and DeviceUnknown both take the fallback arm.
var resolveTable = map[OutputOrientation]map[DeviceOrientation]facingPair{
	OutputLandscapeRight: {
		DevicePortrait:           {90, 270},
		DevicePortraitUpsideDown: {270, 90},
		DeviceLandscapeRight:     {0, 0},
		DeviceLandscapeLeft:      {180, 180},
	},
	OutputLandscapeLeft: {
		DevicePortrait:           {270, 90},
		DevicePortraitUpsideDown: {90, 270},
		DeviceLandscapeRight:     {180, 180},
		DeviceLandscapeLeft:      {0, 0},
	},
	OutputPortrait: {
		DevicePortrait:           {0, 0},
		DevicePortraitUpsideDown: {180, 180},
		DeviceLandscapeRight:     {270, 90},
		DeviceLandscapeLeft:      {90, 270},
	},
	OutputPortraitUpsideDown: {
		DevicePortrait:           {180, 180},
		DevicePortraitUpsideDown: {0, 0},
		DeviceLandscapeRight:     {90, 270},
		DeviceLandscapeLeft:      {270, 90},
	},
}

func TestResolveTable(t *testing.T) {
	count := 0
	for output, row := range resolveTable {
		for device, want := range row {
			back := Resolve(output, device, FacingBack)
			front := Resolve(output, device, FacingFront)
			assert.Equal(t, want.back, back.Degrees(), "%s/%s/back", output, device)
			assert.Equal(t, want.front, front.Degrees(), "%s/%s/front", output, device)
			count += 2
		}
	}
	assert.Equal(t, 32, count)
}

func TestResolveScenarios(t *testing.T) {
	tests := []struct {
		name   string
		output OutputOrientation
		device DeviceOrientation
		facing CameraFacing
		want   int
	}{
		{"landscape right, portrait, front", OutputLandscapeRight, DevicePortrait, FacingFront, 270},
		{"landscape right, portrait, back", OutputLandscapeRight, DevicePortrait, FacingBack, 90},
		{"landscape left, landscape right, front", OutputLandscapeLeft, DeviceLandscapeRight, FacingFront, 180},
		{"portrait, upside down, back", OutputPortrait, DevicePortraitUpsideDown, FacingBack, 180},
		{"upside down, portrait, front", OutputPortraitUpsideDown, DevicePortrait, FacingFront, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.output, tt.device, tt.facing).Degrees())
		})
	}
}

func TestResolveFallback(t *testing.T) {
	for output, row := range resolveTable {
		want := row[DeviceLandscapeLeft]
		for _, device := range []DeviceOrientation{DeviceUnknown, DeviceOrientation(42), DeviceOrientation(-1)} {
			assert.Equal(t, want.back, Resolve(output, device, FacingBack).Degrees(), "%s/%d", output, device)
			assert.Equal(t, want.front, Resolve(output, device, FacingFront).Degrees(), "%s/%d", output, device)
		}
	}
	// an output outside the named values lands in the upside-down arm
	assert.Equal(t, Deg0, Resolve(OutputOrientation(9), DevicePortraitUpsideDown, FacingFront))
}

func TestResolveDeterministic(t *testing.T) {
	for i := 0; i < 100; i++ {
		require.Equal(t, Deg270, Resolve(OutputLandscapeRight, DevicePortrait, FacingFront))
	}
}

func TestResolveRange(t *testing.T) {
	outputs := []OutputOrientation{OutputLandscapeLeft, OutputLandscapeRight, OutputPortrait, OutputPortraitUpsideDown}
	devices := []DeviceOrientation{DeviceUnknown, DevicePortrait, DevicePortraitUpsideDown, DeviceLandscapeLeft, DeviceLandscapeRight}
	for _, o := range outputs {
		for _, d := range devices {
			for _, f := range []CameraFacing{FacingFront, FacingBack} {
				r := Resolve(o, d, f)
				assert.Contains(t, []int{0, 90, 180, 270}, r.Degrees())
			}
		}
	}
}

func TestSurfaceSize(t *testing.T) {
	w, h, ok := SurfaceSize(DevicePortrait, 720, 1280)
	require.True(t, ok)
	assert.Equal(t, [2]int{720, 1280}, [2]int{w, h})

	w, h, ok = SurfaceSize(DevicePortraitUpsideDown, 720, 1280)
	require.True(t, ok)
	assert.Equal(t, [2]int{720, 1280}, [2]int{w, h})

	w, h, ok = SurfaceSize(DeviceLandscapeLeft, 720, 1280)
	require.True(t, ok)
	assert.Equal(t, [2]int{1280, 720}, [2]int{w, h})

	w, h, ok = SurfaceSize(DeviceLandscapeRight, 720, 1280)
	require.True(t, ok)
	assert.Equal(t, [2]int{1280, 720}, [2]int{w, h})

	_, _, ok = SurfaceSize(DeviceUnknown, 720, 1280)
	assert.False(t, ok)
}

func TestRotationDegrees(t *testing.T) {
	assert.Equal(t, 0, Deg0.Degrees())
	assert.Equal(t, 270, Deg270.Degrees())
	assert.Equal(t, 90, Rotation(5).Degrees())
	assert.Equal(t, 270, Rotation(-1).Degrees())
	assert.Equal(t, "90°", Deg90.String())

	r, err := RotationFromDegrees(-90)
	require.NoError(t, err)
	assert.Equal(t, Deg270, r)
	r, err = RotationFromDegrees(450)
	require.NoError(t, err)
	assert.Equal(t, Deg90, r)
	_, err = RotationFromDegrees(45)
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	for _, s := range []string{"landscape-right", "landscapeRight", "LANDSCAPE_RIGHT", " landscape right "} {
		o, err := ParseOutput(s)
		require.NoError(t, err, s)
		assert.Equal(t, OutputLandscapeRight, o)
	}
	o, err := ParseOutput("portraitUpsideDown")
	require.NoError(t, err)
	assert.Equal(t, OutputPortraitUpsideDown, o)
	_, err = ParseOutput("sideways")
	assert.Error(t, err)

	d, err := ParseDevice("landscape-left")
	require.NoError(t, err)
	assert.Equal(t, DeviceLandscapeLeft, d)
	_, err = ParseDevice("unknown")
	assert.Error(t, err)

	f, err := ParseFacing("Back")
	require.NoError(t, err)
	assert.Equal(t, FacingBack, f)
	f, err = ParseFacing("user")
	require.NoError(t, err)
	assert.Equal(t, FacingFront, f)
	_, err = ParseFacing("left")
	assert.Error(t, err)
}

func TestDeviceNextCycles(t *testing.T) {
	seen := map[DeviceOrientation]bool{}
	d := DevicePortrait
	for i := 0; i < 4; i++ {
		seen[d] = true
		d = d.Next()
	}
	assert.Equal(t, DevicePortrait, d)
	assert.Len(t, seen, 4)
	assert.Equal(t, DevicePortrait, DeviceUnknown.Next())
	assert.True(t, DeviceLandscapeLeft.IsLandscape())
	assert.False(t, DevicePortraitUpsideDown.IsLandscape())
}
