//go:build !gui

package ui

import "github.com/pthm-cable/boolnet/sim"

// Run reports that the viewer is not compiled in.
func Run(*sim.Simulation, Options) error {
	return ErrNoGUI
}
