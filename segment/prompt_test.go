package segment

import (
	"errors"
	"testing"
)

func TestEncodePoints(t *testing.T) {
	orig := Size{Width: 800, Height: 600}
	points := []Point{
		{X: 100, Y: 50, Role: Foreground},
		{X: 400, Y: 300, Role: Background},
		{X: 10, Y: 20, Role: Foreground},
	}

	p := EncodePoints(points, orig)
	if len(p.Coords) != len(points)+1 || len(p.Labels) != len(points)+1 {
		t.Fatalf("got %d coords / %d labels, want %d", len(p.Coords), len(p.Labels), len(points)+1)
	}

	wantLabels := []float32{1, 0, 1, -1}
	for i, want := range wantLabels {
		if p.Labels[i] != want {
			t.Errorf("label[%d] = %v, want %v", i, p.Labels[i], want)
		}
	}
	if last := p.Coords[len(p.Coords)-1]; last.X != 0 || last.Y != 0 {
		t.Errorf("padding coord = %+v, want {0 0}", last)
	}
	for i, pt := range points {
		want := ToModelSpace(Coord{X: pt.X, Y: pt.Y}, orig, ModelSize)
		if p.Coords[i] != want {
			t.Errorf("coord[%d] = %+v, want %+v", i, p.Coords[i], want)
		}
	}
}

func TestEncodePoints_SingleForeground(t *testing.T) {
	orig := Size{Width: 1280, Height: 960}
	p := EncodePoints([]Point{{X: 100, Y: 50, Role: Foreground}}, orig)

	wantX := float32(100) * 1024 / float32(orig.Width)
	wantY := float32(50) * 684 / float32(orig.Height)
	if len(p.Coords) != 2 {
		t.Fatalf("expected 2 coords, got %d", len(p.Coords))
	}
	if p.Coords[0].X != wantX || p.Coords[0].Y != wantY {
		t.Errorf("coord = %+v, want {%v %v}", p.Coords[0], wantX, wantY)
	}
	if p.Coords[1] != (Coord{}) {
		t.Errorf("padding coord = %+v", p.Coords[1])
	}
	if p.Labels[0] != 1 || p.Labels[1] != -1 {
		t.Errorf("labels = %v, want [1 -1]", p.Labels)
	}
}

func TestEncodePoints_Empty(t *testing.T) {
	p := EncodePoints(nil, Size{Width: 10, Height: 10})
	if p.Len() != 1 || len(p.Labels) != 1 {
		t.Fatalf("expected only the padding entry, got %+v", p)
	}
	if p.Labels[0] != -1 || p.Coords[0] != (Coord{}) {
		t.Errorf("unexpected padding entry %+v", p)
	}
}

func TestEncodeBox(t *testing.T) {
	orig := Size{Width: 2048, Height: 1368}
	p, err := EncodeBox([]BoxPoint{
		{X: 200, Y: 100, Corner: TopLeft},
		{X: 400, Y: 300, Corner: BottomRight},
	}, orig)
	if err != nil {
		t.Fatalf("EncodeBox failed: %v", err)
	}
	if p.Len() != 2 {
		t.Fatalf("expected 2 coords, got %d", p.Len())
	}
	if p.Labels[0] != 2 || p.Labels[1] != 3 {
		t.Errorf("labels = %v, want [2 3]", p.Labels)
	}
	if p.Coords[0] != (Coord{X: 100, Y: 50}) || p.Coords[1] != (Coord{X: 200, Y: 150}) {
		t.Errorf("coords = %+v", p.Coords)
	}
}

func TestEncodeBox_InputOrder(t *testing.T) {
	p, err := EncodeBox([]BoxPoint{
		{X: 400, Y: 300, Corner: BottomRight},
		{X: 200, Y: 100, Corner: TopLeft},
	}, Size{Width: 1024, Height: 684})
	if err != nil {
		t.Fatalf("EncodeBox failed: %v", err)
	}
	if p.Labels[0] != 3 || p.Labels[1] != 2 {
		t.Errorf("labels = %v, want [3 2]", p.Labels)
	}
}

func TestEncodeBox_Invalid(t *testing.T) {
	size := Size{Width: 100, Height: 100}
	cases := map[string][]BoxPoint{
		"empty": nil,
		"odd":   {{X: 1, Y: 1, Corner: TopLeft}},
		"same corner": {
			{X: 1, Y: 1, Corner: TopLeft},
			{X: 5, Y: 5, Corner: TopLeft},
		},
		"second box same corner": {
			{X: 1, Y: 1, Corner: TopLeft},
			{X: 5, Y: 5, Corner: BottomRight},
			{X: 6, Y: 6, Corner: BottomRight},
			{X: 9, Y: 9, Corner: BottomRight},
		},
	}
	for name, points := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := EncodeBox(points, size)
			if !errors.Is(err, ErrInvalidPrompt) {
				t.Errorf("expected ErrInvalidPrompt, got %v", err)
			}
		})
	}
}

func TestEncodeBoxes(t *testing.T) {
	p, err := EncodeBoxes([]Box{
		{X1: 0, Y1: 0, X2: 10, Y2: 10},
		{X1: 20, Y1: 20, X2: 30, Y2: 30},
	}, Size{Width: 1024, Height: 684})
	if err != nil {
		t.Fatalf("EncodeBoxes failed: %v", err)
	}
	want := []float32{2, 3, 2, 3}
	if p.Len() != 4 {
		t.Fatalf("expected 4 coords, got %d", p.Len())
	}
	for i := range want {
		if p.Labels[i] != want[i] {
			t.Errorf("labels = %v, want %v", p.Labels, want)
			break
		}
	}
	if p.Coords[2] != (Coord{X: 20, Y: 20}) {
		t.Errorf("second box top-left = %+v", p.Coords[2])
	}
}
