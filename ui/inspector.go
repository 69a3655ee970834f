//go:build gui

package ui

import (
	"fmt"
	"strings"
)

// Inspector renders details for the cell under the mouse.
type Inspector struct {
	renderer *Renderer
	width    int32
}

// NewInspector creates a new inspector panel.
func NewInspector(width int32) *Inspector {
	return &Inspector{renderer: NewRenderer(), width: width}
}

// Draw renders the inspector panel at (x, y), kept inside the screen.
func (ins *Inspector) Draw(info CellInfo, x, y, screenW, screenH int32) {
	r := ins.renderer
	lines := int32(5)
	if info.HasShadow {
		lines += 2
	}
	height := r.Theme.Padding*2 + r.Theme.LineHeight*lines

	x = min(x+16, screenW-ins.width)
	y = min(y+16, screenH-height)
	r.DrawPanel(x, y, ins.width, height)

	px := x + r.Theme.Padding
	py := r.DrawSectionHeader(px, y+r.Theme.Padding, fmt.Sprintf("Cell (%d, %d)", info.X, info.Y))
	py = r.DrawLabelValue(px, py, "State", onOff(info.On))
	py = r.DrawLabelValue(px, py, "Recency", fmt.Sprintf("%d / %d", info.Recency, info.Window))

	srcs := make([]string, len(info.Sources))
	for i, s := range info.Sources {
		srcs[i] = fmt.Sprint(s)
	}
	py = r.DrawLabelValue(px, py, "Inputs", strings.Join(srcs, " "))
	py = r.DrawBar(px, py, "Activity", float32(info.Recency)/float32(max(info.Window, 1)), 0, ins.width-r.Theme.Padding*2)

	if info.HasShadow {
		py = r.DrawLabelValue(px, py, "Shadow", onOff(info.ShadowOn))
		diff := "same"
		if info.Differs {
			diff = "DIFFERS"
		}
		r.DrawLabelValue(px, py, "Compare", diff)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
