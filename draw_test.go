package sam

import (
	"image"
	"image/color"
	"testing"
)

func TestDrawer_Overlay(t *testing.T) {
	d, err := NewDrawer("")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	mask := image.NewGray(image.Rect(0, 0, 4, 4))
	mask.SetGray(1, 1, color.Gray{Y: 255})

	out := d.Overlay(img, mask, color.NRGBA{R: 255, A: 255})
	if got := out.RGBAAt(1, 1); got.R != 255 {
		t.Errorf("masked pixel = %v, want red", got)
	}
	if got := out.RGBAAt(0, 0); got.R != 0 {
		t.Errorf("unmasked pixel = %v, want untouched", got)
	}
}

func TestDrawer_OverlayMaskColor(t *testing.T) {
	d, err := NewDrawer("")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	img.SetRGBA(1, 0, color.RGBA{A: 255})
	mask := image.NewGray(image.Rect(0, 0, 2, 1))
	mask.SetGray(0, 0, color.Gray{Y: 255})
	mask.SetGray(1, 0, color.Gray{Y: 255})

	out := d.Overlay(img, mask, MaskColor)

	// 0.6 * MaskColor + 0.4 * 底色
	cases := []struct {
		x    int
		want color.RGBA
	}{
		{0, color.RGBA{R: 120, G: 188, B: 255, A: 255}},
		{1, color.RGBA{R: 18, G: 86, B: 153, A: 255}},
	}
	for _, tc := range cases {
		got := out.RGBAAt(tc.x, 0)
		if !near(got.R, tc.want.R) || !near(got.G, tc.want.G) || !near(got.B, tc.want.B) || got.A != 255 {
			t.Errorf("pixel %d = %v, want ~%v", tc.x, got, tc.want)
		}
	}
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -2 && d <= 2
}

func TestDrawer_DrawTextWithoutFont(t *testing.T) {
	d, err := NewDrawer("")
	if err != nil {
		t.Fatal(err)
	}
	dst := image.NewRGBA(image.Rect(0, 0, 8, 8))
	// 未加载字体时不应 panic
	d.DrawText(dst, "0.95", 1, 6, color.White)
}

func TestNewDrawer_MissingFont(t *testing.T) {
	if _, err := NewDrawer("./fonts/missing.ttf"); err == nil {
		t.Fatal("expected error for missing font file")
	}
}
