//go:build gui

package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/boolnet/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title                string
	Generation           uint64
	GenerationsPerUpdate int
	FPS                  int32
	Paused               bool
	Mode                 string
	Live, Active, Cells  int
	HasShadow            bool
	Divergence           int
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	r := h.renderer
	r.DrawPanel(5, 5, 330, 130)

	rl.DrawText(data.Title, 12, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Gen: %d | Gens/update: %d | FPS: %d", data.Generation, data.GenerationsPerUpdate, data.FPS),
		12, 35, 14, rl.LightGray,
	)
	rl.DrawText(fmt.Sprintf("Mode: %s", data.Mode), 12, 53, 14, rl.LightGray)

	y := int32(71)
	if data.Cells > 0 {
		y = r.DrawBar(12, y, "Live", float32(data.Live)/float32(data.Cells), 0, 310)
		y = r.DrawBar(12, y, "Active", float32(data.Active)/float32(data.Cells), 0, 310)
	}

	if data.HasShadow {
		rl.DrawText(fmt.Sprintf("Diverged: %d cells", data.Divergence), 12, y, 14, rl.Color{R: 0, G: 96, B: 255, A: 255})
	} else {
		rl.DrawText("No shadow (click to perturb)", 12, y, 14, rl.Gray)
	}

	if data.Paused {
		rl.DrawText("PAUSED", 260, 10, 16, rl.Yellow)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the per-phase timing breakdown.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats, phases []string) {
	p.renderer.DrawPanel(p.x, p.y, 320, int32(40+16*len(phases)))
	x, y := p.x+p.renderer.Theme.Padding, p.y+6

	rl.DrawText(fmt.Sprintf("Gen: %s p95 %s  %.1f Mcell/s", stats.AvgGeneration.Round(time.Microsecond),
		stats.P95Generation.Round(time.Microsecond), stats.CellUpdatesPerSecond/1e6), x, y, 14, rl.Yellow)
	y += 18

	for _, name := range phases {
		pct := stats.PhasePct[name]
		color := rl.LightGray
		if pct > 50 {
			color = rl.Red
		} else if pct > 25 {
			color = rl.Orange
		}
		rl.DrawText(
			fmt.Sprintf("%-13s %8s %5.1f%%", name, stats.PhaseAvg[name].Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 16
	}
}
