package render

import (
	"errors"
	"image/color"
	"testing"

	"github.com/pthm-cable/boolnet/engine"
)

func TestChangeColor(t *testing.T) {
	tests := []struct {
		recency, window int
		want            color.RGBA
	}{
		{0, 20, Quiet},
		{1, 20, color.RGBA{0, 140, 0, 255}},
		{5, 20, color.RGBA{0, 191, 0, 255}},
		{10, 20, color.RGBA{0, 255, 0, 255}},
		{20, 20, color.RGBA{0, 255, 0, 255}},
	}
	for _, tt := range tests {
		if got := ChangeColor(tt.recency, tt.window); got != tt.want {
			t.Errorf("ChangeColor(%d, %d) = %v, want %v", tt.recency, tt.window, got, tt.want)
		}
	}
}

func TestFillModes(t *testing.T) {
	f := Frame{
		Cells:   []uint8{1, 0, 1, 0},
		Recency: []uint8{0, 0, 20, 10},
		Window:  20,
	}
	dst := make([]color.RGBA, 4)

	if err := Fill(nil, dst, f); err != nil {
		t.Fatal(err)
	}
	want := []color.RGBA{Live, Dead, Live, Dead}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("normal pixel %d = %v, want %v", i, dst[i], want[i])
		}
	}

	f.Mode = Changes
	if err := Fill(nil, dst, f); err != nil {
		t.Fatal(err)
	}
	if dst[0] != Quiet || dst[1] != Quiet {
		t.Errorf("quiet cells = %v %v", dst[0], dst[1])
	}
	if dst[2].G != 255 || dst[2].R != 0 {
		t.Errorf("busy cell = %v", dst[2])
	}
}

func TestFillHighlightsDivergence(t *testing.T) {
	f := Frame{
		Cells:   []uint8{1, 0, 1, 0},
		Recency: make([]uint8, 4),
		Window:  4,
		Shadow:  []uint8{1, 1, 1, 0},
	}
	dst := make([]color.RGBA, 4)
	if err := Fill(nil, dst, f); err != nil {
		t.Fatal(err)
	}
	for i, c := range dst {
		if (c == Diverged) != (i == 1) {
			t.Errorf("pixel %d = %v", i, c)
		}
	}
}

func TestFillParallelMatchesInline(t *testing.T) {
	const n = 300 * 300
	f := Frame{Cells: make([]uint8, n), Recency: make([]uint8, n), Window: 20, Mode: Changes, Shadow: make([]uint8, n)}
	for i := range f.Cells {
		f.Cells[i] = uint8(i % 2)
		f.Recency[i] = uint8(i % 21)
		f.Shadow[i] = uint8((i / 7) % 2)
	}
	want := make([]color.RGBA, n)
	if err := Fill(nil, want, f); err != nil {
		t.Fatal(err)
	}
	pool := engine.NewPool(engine.Options{Workers: 4})
	defer pool.Close()
	got := make([]color.RGBA, n)
	if err := Fill(pool, got, f); err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pixel %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFillRejectsMismatch(t *testing.T) {
	f := Frame{Cells: []uint8{0, 1}, Recency: []uint8{0}, Window: 4}
	if err := Fill(nil, make([]color.RGBA, 2), f); !errors.Is(err, ErrSize) {
		t.Fatalf("err = %v, want ErrSize", err)
	}
}

func TestImage(t *testing.T) {
	img, err := Image(nil, 2, 1, Frame{Cells: []uint8{1, 0}, Recency: []uint8{0, 0}, Window: 4})
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(0, 0); got != Live {
		t.Errorf("(0,0) = %v, want %v", got, Live)
	}
	if got := img.RGBAAt(1, 0); got != Dead {
		t.Errorf("(1,0) = %v, want %v", got, Dead)
	}
}
