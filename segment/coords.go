package segment

// Size 图片尺寸
type Size struct {
	Width, Height int
}

// ModelSize 模型输入尺寸
var ModelSize = Size{Width: ModelWidth, Height: ModelHeight}

// Coord 二维坐标
type Coord struct {
	X, Y float32
}

// ToModelSpace 将原图坐标按轴独立缩放到模型坐标系
//
// 与 ImageEncoder 的直接缩放(不保持宽高比)一致, 不做裁剪。
func ToModelSpace(p Coord, original, model Size) Coord {
	return Coord{
		X: p.X * float32(model.Width) / float32(original.Width),
		Y: p.Y * float32(model.Height) / float32(original.Height),
	}
}

// FromModelSpace ToModelSpace 的逆变换
func FromModelSpace(p Coord, original, model Size) Coord {
	return Coord{
		X: p.X * float32(original.Width) / float32(model.Width),
		Y: p.Y * float32(original.Height) / float32(model.Height),
	}
}
