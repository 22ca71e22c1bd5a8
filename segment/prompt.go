package segment

import "fmt"

// Role 点击点的类型
type Role int

const (
	Foreground Role = iota // 前景
	Background             // 背景
)

// Corner 框选点的角
type Corner int

const (
	TopLeft     Corner = iota // 左上
	BottomRight               // 右下
)

// Point 原图坐标系下的点击点
type Point struct {
	X, Y float32
	Role Role
}

// BoxPoint 原图坐标系下的框选角点
type BoxPoint struct {
	X, Y   float32
	Corner Corner
}

// Box 原图坐标系下的矩形框
type Box struct {
	X1, Y1, X2, Y2 float32
}

// Points 转换为 (左上, 右下) 两个角点
func (b Box) Points() []BoxPoint {
	return []BoxPoint{
		{X: b.X1, Y: b.Y1, Corner: TopLeft},
		{X: b.X2, Y: b.Y2, Corner: BottomRight},
	}
}

// Prompt 编码后的提示, Coords 已在模型坐标系下
type Prompt struct {
	Coords []Coord
	Labels []float32
}

// Len 提示点个数
func (p Prompt) Len() int {
	return len(p.Coords)
}

// EncodePoints 点击模式编码
//
// 每个点变换到模型坐标系, 前景标签 1, 背景标签 0,
// 最后追加一个 (0,0) / -1 的填充点。空列表只包含填充点。
func EncodePoints(points []Point, original Size) Prompt {
	p := Prompt{
		Coords: make([]Coord, 0, len(points)+1),
		Labels: make([]float32, 0, len(points)+1),
	}
	for _, pt := range points {
		label := LabelForeground
		if pt.Role == Background {
			label = LabelBackground
		}
		p.Coords = append(p.Coords, ToModelSpace(Coord{X: pt.X, Y: pt.Y}, original, ModelSize))
		p.Labels = append(p.Labels, float32(label))
	}

	// 没有框时解码网络要求一个填充点
	p.Coords = append(p.Coords, Coord{})
	p.Labels = append(p.Labels, float32(LabelPadding))
	return p
}

// EncodeBox 框选模式编码
//
// 每两个角点组成一个框, 左上标签 2, 右下标签 3, 不追加填充点。
// 多个框按顺序拼接。
func EncodeBox(points []BoxPoint, original Size) (Prompt, error) {
	if len(points) == 0 {
		return Prompt{}, fmt.Errorf("%w: 框选点为空", ErrInvalidPrompt)
	}
	if len(points)%2 != 0 {
		return Prompt{}, fmt.Errorf("%w: 框选点个数(%d)必须为偶数", ErrInvalidPrompt, len(points))
	}

	p := Prompt{
		Coords: make([]Coord, 0, len(points)),
		Labels: make([]float32, 0, len(points)),
	}
	for i := 0; i < len(points); i += 2 {
		a, b := points[i], points[i+1]
		if a.Corner == b.Corner {
			return Prompt{}, fmt.Errorf("%w: 第 %d 个框的两个角点类型相同", ErrInvalidPrompt, i/2)
		}
		for _, pt := range []BoxPoint{a, b} {
			label := LabelBoxTopLeft
			if pt.Corner == BottomRight {
				label = LabelBoxBottomRight
			}
			p.Coords = append(p.Coords, ToModelSpace(Coord{X: pt.X, Y: pt.Y}, original, ModelSize))
			p.Labels = append(p.Labels, float32(label))
		}
	}
	return p, nil
}

// EncodeBoxes 多个矩形框编码
func EncodeBoxes(boxes []Box, original Size) (Prompt, error) {
	points := make([]BoxPoint, 0, len(boxes)*2)
	for _, b := range boxes {
		points = append(points, b.Points()...)
	}
	return EncodeBox(points, original)
}
