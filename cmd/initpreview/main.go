//go:build gui

package main

import (
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"strings"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/boolnet/config"
	"github.com/pthm-cable/boolnet/grid"
	"github.com/pthm-cable/boolnet/render"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewPx    = 512
	panelWidth   = windowWidth - previewPx - 30
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	rl.InitWindow(windowWidth, windowHeight, "Initial Pattern Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	params := defaultParams(cfg)

	img := rl.GenImageColor(previewSize, previewSize, rl.Black)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(texture)
	rl.SetTextureFilter(texture, rl.FilterPoint)
	pixels := make([]color.RGBA, previewSize*previewSize)

	var g *grid.Grid
	var buildErr error
	mode := render.Normal
	running := false
	needsRegen := true

	for !rl.WindowShouldClose() {
		if needsRegen {
			g, buildErr = buildGrid(cfg, params)
			needsRegen = false
		}
		if g != nil && running && buildErr == nil {
			if err := g.Step(); err != nil {
				buildErr = err
			}
		}
		if g != nil && buildErr == nil {
			frame := render.Frame{Cells: g.Cells(), Recency: g.Recency(), Window: g.Window(), Mode: mode}
			if err := render.Fill(nil, pixels, frame); err == nil {
				rl.UpdateTexture(texture, pixels)
			}
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		// Draw preview
		rl.DrawTexturePro(
			texture,
			rl.Rectangle{X: 0, Y: 0, Width: previewSize, Height: previewSize},
			rl.Rectangle{X: 10, Y: 10, Width: previewPx, Height: previewPx},
			rl.Vector2{X: 0, Y: 0},
			0,
			rl.White,
		)
		rl.DrawRectangleLines(10, 10, previewPx, previewPx, rl.DarkGray)

		// Draw stats
		statsY := int32(previewPx + 25)
		if buildErr != nil {
			rl.DrawText(wrap(buildErr.Error(), 60), 15, statsY, 14, rl.Red)
		} else if g != nil {
			n := float32(g.Len())
			rl.DrawText(fmt.Sprintf("Live: %.3f  Active: %.3f", float32(g.Live())/n, float32(g.Active())/n), 15, statsY, 16, rl.DarkGray)
			rl.DrawText(fmt.Sprintf("Generation: %d  View: %s", g.Generation(), mode), 15, statsY+20, 16, rl.DarkGray)
		}

		// Control panel
		panelX := float32(previewPx + 20)
		panelY := float32(10)

		rl.DrawText("Initial Pattern Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		slider := func(label, lo, hi, format string, value, minV, maxV float32) float32 {
			rl.DrawText(label, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			v := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
				lo, hi,
				value, minV, maxV,
			)
			rl.DrawText(fmt.Sprintf(format, v), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
			panelY += 35
			return v
		}

		if v := slider("Density (chance a cell starts on)", "0", "1", "%.2f", params.Density, 0, 1); v != params.Density {
			params.Density = v
			needsRegen = true
		}
		if v := slider("Noise scale (blob frequency)", "0.005", "0.3", "%.3f", params.NoiseScale, 0.005, 0.3); v != params.NoiseScale {
			params.NoiseScale = v
			needsRegen = true
		}
		if v := slider("Rule on-probability", "0.05", "0.95", "%.2f", params.OnProbability, 0.05, 0.95); v != params.OnProbability {
			params.OnProbability = v
			needsRegen = true
		}
		if v := int(slider("Arity (inputs per cell)", "1", "8", "%.0f", float32(params.Arity), 1, 8)); v != params.Arity {
			params.Arity = v
			needsRegen = true
		}
		if v := int(slider("Radius (neighbourhood)", "1", "12", "%.0f", float32(params.Radius), 1, 12)); v != params.Radius {
			params.Radius = v
			needsRegen = true
		}
		panelY += 10

		// Buttons
		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, toggleText(params.Noise, "Init: noise", "Init: uniform")) {
			params.Noise = !params.Noise
			needsRegen = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, toggleText(running, "Stop", "Run")) {
			running = !running
		}
		if gui.Button(rl.Rectangle{X: panelX + 260, Y: panelY, Width: 120, Height: 30}, toggleText(mode == render.Changes, "View: changes", "View: normal")) {
			if mode == render.Changes {
				mode = render.Normal
			} else {
				mode = render.Changes
			}
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Random Seed") {
			params.Seed = uint64(rl.GetRandomValue(1, 1<<30))
			needsRegen = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Restart") {
			needsRegen = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 260, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = defaultParams(cfg)
			needsRegen = true
		}
		panelY += 55

		// Output YAML
		snippet, err := yamlSnippet(cfg, params)
		if err != nil {
			snippet = err.Error()
		}
		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		for _, line := range strings.Split(strings.TrimSpace(snippet), "\n") {
			rl.DrawText(line, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 16
		}

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) && err == nil {
			rl.SetClipboardText(snippet)
		}

		rl.EndDrawing()
	}
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}

// wrap breaks s into lines of at most width bytes.
func wrap(s string, width int) string {
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteByte('\n')
		s = s[width:]
	}
	b.WriteString(s)
	return b.String()
}
