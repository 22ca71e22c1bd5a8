package sam

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"

	"github.com/up-zero/gotool/imageutil"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	// MaskColor 默认 mask 颜色 (半透明蓝), A 为叠加时的不透明度
	MaskColor = color.NRGBA{R: 30, G: 144, B: 255, A: 153}
	// ForegroundColor 前景点颜色
	ForegroundColor = color.RGBA{G: 255, A: 255}
	// BackgroundColor 背景点颜色
	BackgroundColor = color.RGBA{R: 255, A: 255}
)

// Drawer 分割结果绘制工具
type Drawer struct {
	font     *opentype.Font
	face     font.Face
	fontSize float64
}

// NewDrawer 创建绘制工具
//
// # Params:
//
//	fontPath: 字体路径, 为空时不绘制文本
func NewDrawer(fontPath string) (*Drawer, error) {
	d := new(Drawer)
	if fontPath == "" {
		return d, nil
	}

	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("打开字体文件失败：%w", err)
	}
	ttFont, err := opentype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("解析字体文件失败：%w", err)
	}

	d.font = ttFont
	if err := d.SetSize(16); err != nil {
		return nil, err
	}
	return d, nil
}

// SetSize 动态调整字体大小
func (d *Drawer) SetSize(fontSize float64) error {
	if d.font == nil {
		return nil
	}
	if d.face != nil && d.fontSize == fontSize {
		return nil
	}

	// 释放旧 Face 内存
	if d.face != nil {
		d.face.Close()
	}

	nf, err := opentype.NewFace(d.font, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return err
	}

	d.face = nf
	d.fontSize = fontSize
	return nil
}

// Overlay 将 mask 以半透明颜色叠加到原图上
//
// # Params:
//
//	img: 原图
//	mask: 与原图同尺寸的二值 mask (0 or 255)
//	c: mask 颜色 (非预乘), A 为不透明度
func (d *Drawer) Overlay(img image.Image, mask *image.Gray, c color.NRGBA) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)

	if mask != nil {
		// 不透明度只由 alphaMask 提供
		src := image.NewUniform(color.RGBA{R: c.R, G: c.G, B: c.B, A: 255})
		draw.DrawMask(dst, dst.Bounds(), src, image.Point{}, &alphaMask{mask: mask, alpha: c.A}, image.Point{}, draw.Over)
	}
	return dst
}

// DrawPoint 绘制点击点
func (d *Drawer) DrawPoint(dst *image.RGBA, p image.Point, c color.RGBA) {
	imageutil.DrawFilledCircle(dst, p, 6, c)
}

// DrawBox 绘制矩形框
func (d *Drawer) DrawBox(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	tl, tr := r.Min, image.Point{X: r.Max.X, Y: r.Min.Y}
	br, bl := r.Max, image.Point{X: r.Min.X, Y: r.Max.Y}
	imageutil.DrawThickLine(dst, tl, tr, 3, c)
	imageutil.DrawThickLine(dst, tr, br, 3, c)
	imageutil.DrawThickLine(dst, br, bl, 3, c)
	imageutil.DrawThickLine(dst, bl, tl, 3, c)
}

// DrawText 绘制文本, 未加载字体时忽略
//
// # Params:
//
//	img: 被绘制的图像
//	text: 绘制的文本
//	x, y: 绘制的坐标
//	c: 绘制的颜色
func (d *Drawer) DrawText(img draw.Image, text string, x, y int, c color.Color) {
	if d.face == nil {
		return
	}
	d1 := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c), // 文字颜色源
		Face: d.face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}, // 开始绘制的点
	}
	d1.DrawString(text)
}

// Close 释放资源
func (d *Drawer) Close() {
	if d.face != nil {
		d.face.Close()
		d.face = nil
	}
}

// alphaMask mask 像素非零处使用给定的不透明度
type alphaMask struct {
	mask  *image.Gray
	alpha uint8
}

func (m *alphaMask) ColorModel() color.Model { return color.AlphaModel }

func (m *alphaMask) Bounds() image.Rectangle { return m.mask.Bounds() }

func (m *alphaMask) At(x, y int) color.Color {
	if m.mask.GrayAt(x, y).Y == 0 {
		return color.Alpha{}
	}
	return color.Alpha{A: m.alpha}
}
