//go:build gui

package ui

import (
	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// button is one clickable control in the panel.
type button struct {
	label  string
	action Action
}

var panelButtons = []button{
	{"Pause / Resume", ActionTogglePause},
	{"Normal view", ActionDrawNormal},
	{"Changes view", ActionDrawChanges},
	{"New grid", ActionNewGrid},
	{"Randomize table", ActionRandomizeTable},
	{"Randomize cells", ActionRandomizeCells},
	{"Drop shadow", ActionDropShadow},
	{"Speed 1x", ActionResetSpeed},
	{"Slower", ActionSlowDown},
	{"Faster", ActionSpeedUp},
	{"Save snapshot", ActionSnapshot},
}

// ControlsPanel renders the right-side button panel.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// Contains reports whether screen point (px, py) is over the visible panel.
func (c *ControlsPanel) Contains(px, py float32) bool {
	if !c.visible {
		return false
	}
	return rl.CheckCollisionPointRec(rl.Vector2{X: px, Y: py}, c.bounds())
}

func (c *ControlsPanel) bounds() rl.Rectangle {
	t := c.renderer.Theme
	h := float32(t.Padding*2+t.LineHeight) + float32(len(panelButtons))*(t.ButtonHeight+4)
	return rl.Rectangle{X: float32(c.x), Y: float32(c.y), Width: float32(c.width), Height: h}
}

// Draw renders the panel and returns the action of the clicked button, if any.
func (c *ControlsPanel) Draw() Action {
	if !c.visible {
		return ActionNone
	}

	r := c.renderer
	b := c.bounds()
	r.DrawPanel(c.x, c.y, c.width, int32(b.Height))

	y := r.DrawSectionHeader(c.x+r.Theme.Padding, c.y+r.Theme.Padding, "Controls")

	clicked := ActionNone
	bx := float32(c.x + r.Theme.Padding)
	bw := float32(c.width - r.Theme.Padding*2)
	by := float32(y)
	for _, btn := range panelButtons {
		if gui.Button(rl.Rectangle{X: bx, Y: by, Width: bw, Height: r.Theme.ButtonHeight}, btn.label) {
			clicked = btn.action
		}
		by += r.Theme.ButtonHeight + 4
	}
	return clicked
}
