package main

import (
	"testing"

	"github.com/getcharzp/go-sam/segment"
)

func TestParsePoints(t *testing.T) {
	points, err := parsePoints("10,20,fg; 30.5,40,bg;5,6")
	if err != nil {
		t.Fatalf("parsePoints failed: %v", err)
	}
	want := []segment.Point{
		{X: 10, Y: 20, Role: segment.Foreground},
		{X: 30.5, Y: 40, Role: segment.Background},
		{X: 5, Y: 6, Role: segment.Foreground},
	}
	if len(points) != len(want) {
		t.Fatalf("got %d points, want %d", len(points), len(want))
	}
	for i := range want {
		if points[i] != want[i] {
			t.Errorf("point[%d] = %+v, want %+v", i, points[i], want[i])
		}
	}

	for _, bad := range []string{"1", "1,2,3,4", "a,b", "1,2,maybe"} {
		if _, err := parsePoints(bad); err == nil {
			t.Errorf("parsePoints(%q) expected error", bad)
		}
	}
}

func TestParseBox(t *testing.T) {
	b, err := parseBox("1, 2, 30, 40")
	if err != nil {
		t.Fatalf("parseBox failed: %v", err)
	}
	if b != (segment.Box{X1: 1, Y1: 2, X2: 30, Y2: 40}) {
		t.Errorf("box = %+v", b)
	}
	if _, err := parseBox("1,2,3"); err == nil {
		t.Error("expected error for 3 values")
	}
}
