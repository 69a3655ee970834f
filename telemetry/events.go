// Package telemetry provides network activity tracking, bookmarking, and snapshots.
package telemetry

// EventType identifies user interventions recorded during a stats window.
type EventType uint8

const (
	EventToggle EventType = iota
	EventRandomizeTable
	EventRandomizeCells
	EventNewGrid
)

func (e EventType) String() string {
	switch e {
	case EventToggle:
		return "toggle"
	case EventRandomizeTable:
		return "randomize_table"
	case EventRandomizeCells:
		return "randomize_cells"
	case EventNewGrid:
		return "new_grid"
	}
	return "unknown"
}
