// Package orient maps the capture output orientation, the live device
// orientation and the camera facing onto the rotation a frame needs before
// it is handed to the effect player.
package orient

import (
	"fmt"
	"strings"
)

// OutputOrientation is the orientation the capture connection is configured
// to deliver frames in. It is chosen once at startup.
type OutputOrientation int

const (
	OutputLandscapeLeft OutputOrientation = iota
	OutputLandscapeRight
	OutputPortrait
	OutputPortraitUpsideDown
)

// DeviceOrientation is the live rotation state reported by the host.
// DeviceUnknown is the zero value and resolves through the fallback branch.
type DeviceOrientation int

const (
	DeviceUnknown DeviceOrientation = iota
	DevicePortrait
	DevicePortraitUpsideDown
	DeviceLandscapeLeft
	DeviceLandscapeRight
)

// CameraFacing tells whether the active camera looks at the user or away.
type CameraFacing int

const (
	FacingFront CameraFacing = iota
	FacingBack
)

// Rotation is a clockwise rotation in quarter turns.
type Rotation int

const (
	Deg0 Rotation = iota
	Deg90
	Deg180
	Deg270
)

// Resolve returns the rotation that presents a frame captured in output
// orientation upright on a device held in the given orientation.
func Resolve(output OutputOrientation, device DeviceOrientation, facing CameraFacing) Rotation {
	front := facing == FacingFront
	switch output {
	case OutputLandscapeRight:
		switch device {
		case DevicePortrait:
			return pick(front, Deg270, Deg90)
		case DevicePortraitUpsideDown:
			return pick(front, Deg90, Deg270)
		case DeviceLandscapeRight:
			return Deg0
		default:
			return Deg180
		}
	case OutputLandscapeLeft:
		switch device {
		case DevicePortrait:
			return pick(front, Deg90, Deg270)
		case DevicePortraitUpsideDown:
			return pick(front, Deg270, Deg90)
		case DeviceLandscapeRight:
			return Deg180
		default:
			return Deg0
		}
	case OutputPortrait:
		switch device {
		case DevicePortrait:
			return Deg0
		case DevicePortraitUpsideDown:
			return Deg180
		case DeviceLandscapeRight:
			return pick(front, Deg90, Deg270)
		default:
			return pick(front, Deg270, Deg90)
		}
	default: // OutputPortraitUpsideDown
		switch device {
		case DevicePortrait:
			return Deg180
		case DevicePortraitUpsideDown:
			return Deg0
		case DeviceLandscapeRight:
			return pick(front, Deg270, Deg90)
		default:
			return pick(front, Deg90, Deg270)
		}
	}
}

func pick(front bool, frontRot, backRot Rotation) Rotation {
	if front {
		return frontRot
	}
	return backRot
}

// SurfaceSize returns the render surface for the device orientation given the
// portrait surface w x h. Landscape swaps the sides. ok is false for an
// unknown orientation, in which case the surface should stay as it is.
func SurfaceSize(device DeviceOrientation, w, h int) (int, int, bool) {
	switch device {
	case DevicePortrait, DevicePortraitUpsideDown:
		return w, h, true
	case DeviceLandscapeLeft, DeviceLandscapeRight:
		return h, w, true
	default:
		return 0, 0, false
	}
}

// Degrees returns the clockwise angle in degrees.
func (r Rotation) Degrees() int {
	return r.QuarterTurns() * 90
}

// QuarterTurns normalizes r into [0,3].
func (r Rotation) QuarterTurns() int {
	q := int(r) % 4
	if q < 0 {
		q += 4
	}
	return q
}

// RotationFromDegrees accepts multiples of 90, negative values included.
func RotationFromDegrees(deg int) (Rotation, error) {
	if deg%90 != 0 {
		return Deg0, fmt.Errorf("rotation %d is not a multiple of 90", deg)
	}
	return Rotation(deg / 90).normalize(), nil
}

func (r Rotation) normalize() Rotation {
	return Rotation(r.QuarterTurns())
}

func (r Rotation) String() string {
	return fmt.Sprintf("%d°", r.Degrees())
}

// Next cycles portrait -> landscape right -> upside down -> landscape left,
// the order a device passes through when turned clockwise.
func (d DeviceOrientation) Next() DeviceOrientation {
	switch d {
	case DevicePortrait:
		return DeviceLandscapeRight
	case DeviceLandscapeRight:
		return DevicePortraitUpsideDown
	case DevicePortraitUpsideDown:
		return DeviceLandscapeLeft
	default:
		return DevicePortrait
	}
}

// IsLandscape reports whether the device is held sideways.
func (d DeviceOrientation) IsLandscape() bool {
	return d == DeviceLandscapeLeft || d == DeviceLandscapeRight
}

var outputNames = map[OutputOrientation]string{
	OutputLandscapeLeft:      "landscape-left",
	OutputLandscapeRight:     "landscape-right",
	OutputPortrait:           "portrait",
	OutputPortraitUpsideDown: "portrait-upside-down",
}

var deviceNames = map[DeviceOrientation]string{
	DeviceUnknown:            "unknown",
	DevicePortrait:           "portrait",
	DevicePortraitUpsideDown: "portrait-upside-down",
	DeviceLandscapeLeft:      "landscape-left",
	DeviceLandscapeRight:     "landscape-right",
}

func (o OutputOrientation) String() string {
	if s, ok := outputNames[o]; ok {
		return s
	}
	return fmt.Sprintf("output(%d)", int(o))
}

func (d DeviceOrientation) String() string {
	if s, ok := deviceNames[d]; ok {
		return s
	}
	return fmt.Sprintf("device(%d)", int(d))
}

func (f CameraFacing) String() string {
	switch f {
	case FacingFront:
		return "front"
	case FacingBack:
		return "back"
	default:
		return fmt.Sprintf("facing(%d)", int(f))
	}
}

// ParseOutput accepts "landscape-right", "landscapeRight", "landscape_right"
// and friends, case-insensitively.
func ParseOutput(s string) (OutputOrientation, error) {
	key := normalizeName(s)
	for o, name := range outputNames {
		if normalizeName(name) == key {
			return o, nil
		}
	}
	return OutputLandscapeLeft, fmt.Errorf("unknown output orientation %q", s)
}

// ParseDevice is the DeviceOrientation counterpart of ParseOutput. "unknown"
// is not accepted.
func ParseDevice(s string) (DeviceOrientation, error) {
	key := normalizeName(s)
	for d, name := range deviceNames {
		if d == DeviceUnknown {
			continue
		}
		if normalizeName(name) == key {
			return d, nil
		}
	}
	return DeviceUnknown, fmt.Errorf("unknown device orientation %q", s)
}

// ParseFacing accepts "front"/"back" and the "user"/"environment" aliases.
func ParseFacing(s string) (CameraFacing, error) {
	switch normalizeName(s) {
	case "front", "user":
		return FacingFront, nil
	case "back", "rear", "environment":
		return FacingBack, nil
	default:
		return FacingFront, fmt.Errorf("unknown camera facing %q", s)
	}
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}
