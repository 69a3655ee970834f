//go:build gui

package ui

import (
	"fmt"
	"image/color"
	"log/slog"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/boolnet/camera"
	"github.com/pthm-cable/boolnet/render"
	"github.com/pthm-cable/boolnet/sim"
	"github.com/pthm-cable/boolnet/telemetry"
)

// keyBindings maps single key presses to session actions.
var keyBindings = []struct {
	key    int32
	action Action
}{
	{rl.KeySpace, ActionTogglePause},
	{rl.KeyOne, ActionDrawNormal},
	{rl.KeyTwo, ActionDrawChanges},
	{rl.KeyN, ActionNewGrid},
	{rl.KeyT, ActionRandomizeTable},
	{rl.KeyC, ActionRandomizeCells},
	{rl.KeyQ, ActionResetSpeed},
	{rl.KeyW, ActionSlowDown},
	{rl.KeyE, ActionSpeedUp},
	{rl.KeyX, ActionDropShadow},
	{rl.KeyS, ActionSnapshot},
}

const controlsLegend = "Space pause  1/2 view  N new  T table  C cells  Q/W/E speed  X drop shadow  S snapshot  LMB perturb  wheel/RMB zoom+pan  R reset view"

// Viewer draws a session into a raylib window and routes input to it.
type Viewer struct {
	sim    *sim.Simulation
	opts   Options
	logger *slog.Logger

	cam     *camera.Camera
	screenW int
	screenH int
	texture rl.Texture2D
	texW    int
	texH    int
	pixels  []color.RGBA

	hud       *HUD
	perfPanel *PerfPanel
	controls  *ControlsPanel
	inspector *Inspector
	overlays  *OverlayRegistry

	// Cell last toggled during the current mouse drag
	dragging   bool
	lastX      int
	lastY      int
	lastReport time.Time
	frames     int
	startGen   uint64
}

// Run opens a window and drives s until the window closes or the
// generation limit is reached.
func Run(s *sim.Simulation, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	rl.InitWindow(int32(opts.Width), int32(opts.Height), opts.Title)
	defer rl.CloseWindow()
	if opts.TargetFPS > 0 {
		rl.SetTargetFPS(int32(opts.TargetFPS))
	}

	v := &Viewer{
		sim:       s,
		opts:      opts,
		logger:    opts.Logger,
		hud:       NewHUD(),
		perfPanel: NewPerfPanel(5, 145),
		controls:  NewControlsPanel(int32(opts.Width)-190, 5, 185),
		inspector: NewInspector(240),
		overlays:  NewOverlayRegistry(),
	}
	v.resize(opts.Width, opts.Height)
	defer v.unload()

	v.lastReport = time.Now()
	v.startGen = s.Generation()
	for !rl.WindowShouldClose() {
		if err := v.update(); err != nil {
			return err
		}
		if err := v.draw(); err != nil {
			return err
		}
		if opts.MaxGenerations > 0 && s.Generation() >= opts.MaxGenerations {
			v.logger.Info("max generations reached", "generation", s.Generation())
			break
		}
	}
	return nil
}

// resize updates the camera and reallocates the texture when the grid
// shape changed.
func (v *Viewer) resize(screenW, screenH int) {
	p := v.sim.Primary()
	v.screenW, v.screenH = screenW, screenH
	if v.texW == p.Width() && v.texH == p.Height() {
		v.cam.Resize(float32(screenW), float32(screenH))
		return
	}
	v.cam = camera.New(float32(screenW), float32(screenH), float32(p.Width()), float32(p.Height()))
	v.unload()
	img := rl.GenImageColor(p.Width(), p.Height(), rl.Black)
	v.texture = rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	rl.SetTextureFilter(v.texture, rl.FilterPoint)
	v.texW, v.texH = p.Width(), p.Height()
	v.pixels = make([]color.RGBA, p.Len())
}

func (v *Viewer) unload() {
	if v.texW > 0 {
		rl.UnloadTexture(v.texture)
		v.texW, v.texH = 0, 0
	}
}

func (v *Viewer) update() error {
	for _, kb := range keyBindings {
		if rl.IsKeyPressed(kb.key) {
			if err := v.apply(kb.action); err != nil {
				return err
			}
		}
	}
	for _, id := range v.overlays.HandleKeys() {
		if id == OverlayControls {
			v.controls.Toggle()
		}
	}

	if rl.IsWindowResized() {
		v.resize(rl.GetScreenWidth(), rl.GetScreenHeight())
		v.controls.SetPosition(int32(v.screenW)-190, 5)
	}

	v.handleCamera()
	v.handleMouse()

	return v.sim.Update()
}

func (v *Viewer) apply(a Action) error {
	if err := Apply(v.sim, a); err != nil {
		// A failed snapshot is not fatal to the session.
		if a == ActionSnapshot {
			v.logger.Error("failed to save snapshot", "error", err)
			return nil
		}
		return fmt.Errorf("%v: %w", a, err)
	}
	if a == ActionNewGrid {
		v.resize(v.screenW, v.screenH)
	}
	return nil
}

// handleMouse toggles the shadow cell under the cursor, once per cell
// entered while the left button is held.
func (v *Viewer) handleMouse() {
	if !rl.IsMouseButtonDown(rl.MouseButtonLeft) {
		v.dragging = false
		return
	}
	pos := rl.GetMousePosition()
	if v.controls.Contains(pos.X, pos.Y) {
		return
	}
	x, y, ok := v.cam.CellAt(pos.X, pos.Y)
	if !ok || (v.dragging && x == v.lastX && y == v.lastY) {
		return
	}
	if err := v.sim.ToggleCell(x, y); err != nil {
		v.logger.Warn("toggle failed", "x", x, "y", y, "error", err)
		return
	}
	v.dragging, v.lastX, v.lastY = true, x, y
}

// handleCamera zooms with the mouse wheel, pans with the right button held
// and resets on R.
func (v *Viewer) handleCamera() {
	if rl.IsKeyPressed(rl.KeyR) {
		v.cam.Reset()
	}
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		pos := rl.GetMousePosition()
		factor := float32(1.25)
		if wheel < 0 {
			factor = 1 / factor
		}
		v.cam.ZoomAt(pos.X, pos.Y, factor)
	}
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		v.cam.Pan(-d.X, -d.Y)
	}
}

func (v *Viewer) draw() error {
	start := time.Now()
	if err := render.Fill(v.sim.Pool(), v.pixels, v.sim.Frame()); err != nil {
		return fmt.Errorf("rendering frame: %w", err)
	}
	rl.UpdateTexture(v.texture, v.pixels)

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)

	minX, minY, maxX, maxY := v.cam.VisibleWorldBounds()
	src := rl.Rectangle{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
	dst := rl.Rectangle{Width: float32(v.screenW), Height: float32(v.screenH)}
	rl.DrawTexturePro(v.texture, src, dst, rl.Vector2{}, 0, rl.White)

	v.drawOverlays()

	rl.EndDrawing()
	v.sim.RecordRender(time.Since(start))
	v.sim.RecordFrame()
	v.report()
	return nil
}

func (v *Viewer) drawOverlays() {
	s := v.sim
	p := s.Primary()

	if v.overlays.IsEnabled(OverlayHUD) {
		v.hud.Draw(HUDData{
			Title:                v.opts.Title,
			Generation:           s.Generation(),
			GenerationsPerUpdate: s.GenerationsPerUpdate(),
			FPS:                  rl.GetFPS(),
			Paused:               s.Paused(),
			Mode:                 s.DrawMode().String(),
			Live:                 p.Live(),
			Active:               p.Active(),
			Cells:                p.Len(),
			HasShadow:            s.HasShadow(),
			Divergence:           s.Divergence(),
		})
		v.hud.DrawControls(int32(v.screenH), controlsLegend+"  |  "+v.overlays.Legend())
	}

	if v.overlays.IsEnabled(OverlayPerf) {
		v.perfPanel.Draw(s.PerfStats(), telemetry.Phases())
	}

	if a := v.controls.Draw(); a != ActionNone {
		if err := v.apply(a); err != nil {
			v.logger.Error("control failed", "action", a.String(), "error", err)
		}
	}

	if v.overlays.IsEnabled(OverlayInspector) {
		pos := rl.GetMousePosition()
		if x, y, ok := v.cam.CellAt(pos.X, pos.Y); ok {
			if info, err := Inspect(s, x, y); err == nil {
				v.inspector.Draw(info, int32(pos.X), int32(pos.Y), int32(v.screenW), int32(v.screenH))
			}
		}
	}
}

// report logs frame rate and generation throughput once a second.
func (v *Viewer) report() {
	v.frames++
	elapsed := time.Since(v.lastReport)
	if elapsed < time.Second {
		return
	}
	gen := v.sim.Generation()
	gens := float64(0)
	if gen >= v.startGen {
		gens = float64(gen - v.startGen)
	}
	v.logger.Info("viewer",
		"fps", float64(v.frames)/elapsed.Seconds(),
		"generations_per_frame", gens/float64(v.frames),
		"generation", gen,
	)
	v.frames = 0
	v.startGen = gen
	v.lastReport = time.Now()
}
