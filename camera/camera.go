// Package camera provides a 2D camera for zooming and panning over a grid.
package camera

import "math"

// Camera controls the viewport into a grid of cells. World coordinates are
// cell units; at zoom 1 the whole grid fills the viewport, stretched per axis.
// The view never leaves the grid.
type Camera struct {
	// Position is the view center in world coordinates
	X, Y float32

	// Zoom level (1.0 = whole grid, 2.0 = 2x magnification)
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// World dimensions in cells
	WorldW, WorldH float32

	// Zoom constraints
	MinZoom, MaxZoom float32
}

// New creates a camera showing the whole grid.
func New(viewportW, viewportH, worldW, worldH float32) *Camera {
	return &Camera{
		X:         worldW / 2,
		Y:         worldH / 2,
		Zoom:      1.0,
		ViewportW: viewportW,
		ViewportH: viewportH,
		WorldW:    worldW,
		WorldH:    worldH,
		MinZoom:   1.0,
		MaxZoom:   max(1, min(worldW, worldH)/4),
	}
}

// scale returns screen pixels per cell on each axis.
func (c *Camera) scale() (sx, sy float32) {
	return c.ViewportW / c.WorldW * c.Zoom, c.ViewportH / c.WorldH * c.Zoom
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	kx, ky := c.scale()
	return c.ViewportW/2 + (wx-c.X)*kx, c.ViewportH/2 + (wy-c.Y)*ky
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	kx, ky := c.scale()
	return c.X + (sx-c.ViewportW/2)/kx, c.Y + (sy-c.ViewportH/2)/ky
}

// CellAt returns the cell under screen position (sx, sy).
func (c *Camera) CellAt(sx, sy float32) (x, y int, ok bool) {
	if sx < 0 || sy < 0 || sx >= c.ViewportW || sy >= c.ViewportH {
		return 0, 0, false
	}
	wx, wy := c.ScreenToWorld(sx, sy)
	x, y = int(math.Floor(float64(wx))), int(math.Floor(float64(wy)))
	if x < 0 || y < 0 || x >= int(c.WorldW) || y >= int(c.WorldH) {
		return 0, 0, false
	}
	return x, y, true
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float32) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// Pan moves the camera by the given delta in screen pixels.
func (c *Camera) Pan(dx, dy float32) {
	kx, ky := c.scale()
	c.X += dx / kx
	c.Y += dy / ky
	c.clampCenter()
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
	c.clampCenter()
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// ZoomAt zooms by factor keeping the world point under (sx, sy) fixed on
// screen, as far as the grid edges allow.
func (c *Camera) ZoomAt(sx, sy, factor float32) {
	wx, wy := c.ScreenToWorld(sx, sy)
	c.Zoom = clamp(c.Zoom*factor, c.MinZoom, c.MaxZoom)
	kx, ky := c.scale()
	c.X = wx - (sx-c.ViewportW/2)/kx
	c.Y = wy - (sy-c.ViewportH/2)/ky
	c.clampCenter()
}

// Reset returns the camera to the default position and zoom.
func (c *Camera) Reset() {
	c.X = c.WorldW / 2
	c.Y = c.WorldH / 2
	c.Zoom = 1.0
}

// VisibleWorldBounds returns the world-coordinate bounds of the visible area.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float32) {
	halfW := c.WorldW / (2 * c.Zoom)
	halfH := c.WorldH / (2 * c.Zoom)
	return c.X - halfW, c.Y - halfH, c.X + halfW, c.Y + halfH
}

// clampCenter keeps the visible area inside the world.
func (c *Camera) clampCenter() {
	halfW := c.WorldW / (2 * c.Zoom)
	halfH := c.WorldH / (2 * c.Zoom)
	c.X = clamp(c.X, halfW, c.WorldW-halfW)
	c.Y = clamp(c.Y, halfH, c.WorldH-halfH)
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
