//go:build gui

package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID uniquely identifies a toggleable panel.
type OverlayID string

// Standard overlay IDs.
const (
	OverlayHUD       OverlayID = "hud"
	OverlayPerf      OverlayID = "perf"
	OverlayControls  OverlayID = "controls"
	OverlayInspector OverlayID = "inspector"
)

// OverlayDescriptor defines an overlay that can be toggled.
type OverlayDescriptor struct {
	ID       OverlayID
	Name     string
	Key      int32  // keyboard key to toggle (0 = no key)
	KeyLabel string // e.g. "F1"
	Enabled  bool   // initial state
}

// OverlayRegistry manages overlay state and metadata.
type OverlayRegistry struct {
	descriptors []OverlayDescriptor
	enabled     map[OverlayID]bool
}

// NewOverlayRegistry creates a registry with default overlays.
func NewOverlayRegistry() *OverlayRegistry {
	reg := &OverlayRegistry{enabled: make(map[OverlayID]bool)}
	reg.Register(OverlayDescriptor{ID: OverlayHUD, Name: "HUD", Key: rl.KeyF1, KeyLabel: "F1", Enabled: true})
	reg.Register(OverlayDescriptor{ID: OverlayPerf, Name: "Performance", Key: rl.KeyF2, KeyLabel: "F2"})
	reg.Register(OverlayDescriptor{ID: OverlayControls, Name: "Controls", Key: rl.KeyF3, KeyLabel: "F3"})
	reg.Register(OverlayDescriptor{ID: OverlayInspector, Name: "Inspector", Key: rl.KeyF4, KeyLabel: "F4"})
	return reg
}

// Register adds an overlay descriptor.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	r.descriptors = append(r.descriptors, desc)
	r.enabled[desc.ID] = desc.Enabled
}

// IsEnabled returns whether an overlay is enabled.
func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	return r.enabled[id]
}

// Toggle switches an overlay's state and returns the new state.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	r.enabled[id] = !r.enabled[id]
	return r.enabled[id]
}

// HandleKeys toggles every overlay whose key was pressed this frame and
// returns the IDs that changed.
func (r *OverlayRegistry) HandleKeys() []OverlayID {
	var changed []OverlayID
	for _, d := range r.descriptors {
		if d.Key != 0 && rl.IsKeyPressed(d.Key) {
			r.Toggle(d.ID)
			changed = append(changed, d.ID)
		}
	}
	return changed
}

// Legend returns a short key legend such as "F1 HUD  F2 Performance".
func (r *OverlayRegistry) Legend() string {
	s := ""
	for i, d := range r.descriptors {
		if i > 0 {
			s += "  "
		}
		s += d.KeyLabel + " " + d.Name
	}
	return s
}
