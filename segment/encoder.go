package segment

import (
	"fmt"
	"image"
	"time"

	"github.com/getcharzp/go-sam/engine"
	"github.com/up-zero/gotool/imageutil"
	"go.uber.org/zap"
)

// PixelFunc 将图片缩放到 width x height 并按 HWC 顺序输出 RGB 字节
type PixelFunc func(img image.Image, width, height int) ([]byte, error)

// ResizePixels 默认的像素序列化, 直接缩放到目标尺寸(不保持宽高比)
func ResizePixels(img image.Image, width, height int) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("图片为空")
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("图片尺寸非法: %dx%d", b.Dx(), b.Dy())
	}

	resized := imageutil.Resize(img, width, height)
	bounds := resized.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		return nil, fmt.Errorf("缩放结果尺寸(%dx%d)与目标(%dx%d)不一致", bounds.Dx(), bounds.Dy(), width, height)
	}

	pixels := make([]byte, 0, width*height*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// RGBA returns 0-65535
			pixels = append(pixels, uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
	return pixels, nil
}

// EncodeResult 图片特征缓存, 创建后只读, 可被任意多次解码共享
type EncodeResult struct {
	embedding *engine.Tensor
	size      Size
}

// RestoreEncodeResult 由缓存中的特征重建 EncodeResult
func RestoreEncodeResult(embedding *engine.Tensor, size Size) (*EncodeResult, error) {
	if embedding == nil {
		return nil, fmt.Errorf("图片特征为空")
	}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("图片尺寸非法: %dx%d", size.Width, size.Height)
	}
	if int64(len(embedding.Data)) != engine.ShapeSize(embedding.Shape) {
		return nil, fmt.Errorf("图片特征长度(%d)与形状 %v 不匹配", len(embedding.Data), embedding.Shape)
	}
	return &EncodeResult{embedding: embedding, size: size}, nil
}

// Embedding 图片特征张量, 调用方不得修改
func (r *EncodeResult) Embedding() *engine.Tensor {
	return r.embedding
}

// OriginalSize 缩放前的原图尺寸
func (r *EncodeResult) OriginalSize() Size {
	return r.size
}

// ImageEncoder 图像特征提取
type ImageEncoder struct {
	manager *Manager
	pixels  PixelFunc
}

// NewImageEncoder 创建图像编码器, pixels 为空时使用 ResizePixels
func NewImageEncoder(m *Manager, pixels PixelFunc) *ImageEncoder {
	if pixels == nil {
		pixels = ResizePixels
	}
	return &ImageEncoder{manager: m, pixels: pixels}
}

// Encode 提取图片特征
//
// 代价最高的操作, 同一张图片只应调用一次, 结果由调用方缓存。
func (e *ImageEncoder) Encode(img image.Image) (*EncodeResult, error) {
	s, release, err := e.manager.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if img == nil {
		return nil, fmt.Errorf("%w: 图片为空", ErrImageEncodingFailed)
	}
	bounds := img.Bounds()
	size := Size{Width: bounds.Dx(), Height: bounds.Dy()}

	// 预处理
	pixels, err := e.pixels(img, ModelWidth, ModelHeight)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageEncodingFailed, err)
	}
	if len(pixels) != ModelWidth*ModelHeight*3 {
		return nil, fmt.Errorf("%w: 像素长度(%d)与 %dx%dx3 不匹配", ErrImageEncodingFailed, len(pixels), ModelHeight, ModelWidth)
	}
	data := make([]float32, len(pixels))
	for i, v := range pixels {
		data[i] = float32(v)
	}

	// Encoder 推理
	start := time.Now()
	outputs, err := e.manager.run(s.encoder, &e.manager.encMu, map[string]*engine.Tensor{
		inputImage: {Shape: []int64{ModelHeight, ModelWidth, 3}, Data: data},
	}, encoderOutputs)
	if err != nil {
		return nil, err
	}

	e.manager.logger.Debug("image encoded",
		zap.Int("width", size.Width),
		zap.Int("height", size.Height),
		zap.Duration("cost", time.Since(start)))

	return &EncodeResult{
		embedding: outputs[imageEmbeddings],
		size:      size,
	}, nil
}
