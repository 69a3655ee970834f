// Package ui is the interactive viewer for a Boolean network session.
// Drawing requires the gui build tag; the action, layout and inspection
// helpers in this file build everywhere.
package ui

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/boolnet/render"
	"github.com/pthm-cable/boolnet/sim"
)

// ErrNoGUI is returned by Run in builds without the gui tag.
var ErrNoGUI = errors.New("ui: viewer requires the gui build tag (go build -tags gui)")

// Options configures the viewer window.
type Options struct {
	Title          string
	Width, Height  int
	TargetFPS      int
	MaxGenerations uint64 // 0 = run until the window closes
	Logger         *slog.Logger
}

// Action is a user command the viewer can apply to a session.
type Action int

const (
	ActionNone Action = iota
	ActionTogglePause
	ActionDrawNormal
	ActionDrawChanges
	ActionNewGrid
	ActionRandomizeTable
	ActionRandomizeCells
	ActionResetSpeed
	ActionSlowDown
	ActionSpeedUp
	ActionDropShadow
	ActionSnapshot
)

var actionNames = map[Action]string{
	ActionNone:           "none",
	ActionTogglePause:    "toggle_pause",
	ActionDrawNormal:     "draw_normal",
	ActionDrawChanges:    "draw_changes",
	ActionNewGrid:        "new_grid",
	ActionRandomizeTable: "randomize_table",
	ActionRandomizeCells: "randomize_cells",
	ActionResetSpeed:     "reset_speed",
	ActionSlowDown:       "slow_down",
	ActionSpeedUp:        "speed_up",
	ActionDropShadow:     "drop_shadow",
	ActionSnapshot:       "snapshot",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Apply runs a on the session.
func Apply(s *sim.Simulation, a Action) error {
	switch a {
	case ActionNone:
	case ActionTogglePause:
		s.TogglePause()
	case ActionDrawNormal:
		s.SetDrawMode(render.Normal)
	case ActionDrawChanges:
		s.SetDrawMode(render.Changes)
	case ActionNewGrid:
		return s.NewGrid()
	case ActionRandomizeTable:
		s.RandomizeTable()
	case ActionRandomizeCells:
		s.RandomizeCells()
	case ActionResetSpeed:
		s.ResetSpeed()
	case ActionSlowDown:
		s.SlowDown()
	case ActionSpeedUp:
		s.SpeedUp()
	case ActionDropShadow:
		s.DropShadow()
	case ActionSnapshot:
		_, err := s.SaveSnapshot()
		return err
	default:
		return fmt.Errorf("unknown action %d", int(a))
	}
	return nil
}

// CellInfo describes one cell for the inspector panel.
type CellInfo struct {
	X, Y    int
	On      bool
	Recency int
	Window  int
	Sources []int32

	HasShadow bool
	ShadowOn  bool
	Differs   bool
}

// Inspect gathers everything the inspector shows about cell (x, y).
func Inspect(s *sim.Simulation, x, y int) (CellInfo, error) {
	p := s.Primary()
	on, err := p.Cell(x, y)
	if err != nil {
		return CellInfo{}, err
	}
	rec, err := p.RecencyAt(x, y)
	if err != nil {
		return CellInfo{}, err
	}
	info := CellInfo{
		X:       x,
		Y:       y,
		On:      on,
		Recency: rec,
		Window:  p.Window(),
		Sources: p.Topology().Sources(x + y*p.Width()),
	}
	if sh := s.Shadow(); sh != nil {
		info.HasShadow = true
		if info.ShadowOn, err = sh.Cell(x, y); err != nil {
			return CellInfo{}, err
		}
		info.Differs = info.ShadowOn != on
	}
	return info, nil
}
