//go:build !linux

package engine

import "errors"

var errPinUnsupported = errors.New("engine: core pinning not supported on this platform")

func availableCPUs() []int { return nil }

func pinToCPU(int) error { return errPinUnsupported }
