//go:build !windows && !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly

package ui

import "errors"

func prepareTTYForKeys(fd int) (func(), error) {
	return nil, errors.New("raw key input is not supported on this platform")
}
