package segment

import (
	"fmt"
	"image"

	"github.com/getcharzp/go-sam/engine"
)

// DecodeResult Mask 预测结果, 创建后只读
type DecodeResult struct {
	Masks          *engine.Tensor // [1, C, H, W] 模型坐标系下的 mask logits
	IoUPredictions *engine.Tensor // [1, C]
	LowResMasks    *engine.Tensor // [1, C, 256, 256]
}

// MaskDecoder Mask 解码
type MaskDecoder struct {
	manager *Manager
}

// NewMaskDecoder 创建解码器
func NewMaskDecoder(m *Manager) *MaskDecoder {
	return &MaskDecoder{manager: m}
}

// DecodePoints 点击模式解码
func (d *MaskDecoder) DecodePoints(res *EncodeResult, points []Point) (*DecodeResult, error) {
	return d.decode(res, func(size Size) (Prompt, error) {
		return EncodePoints(points, size), nil
	})
}

// DecodeBox 框选模式解码, 角点两两成框
func (d *MaskDecoder) DecodeBox(res *EncodeResult, points []BoxPoint) (*DecodeResult, error) {
	return d.decode(res, func(size Size) (Prompt, error) {
		return EncodeBox(points, size)
	})
}

// DecodeBoxes 多个矩形框解码
func (d *MaskDecoder) DecodeBoxes(res *EncodeResult, boxes []Box) (*DecodeResult, error) {
	return d.decode(res, func(size Size) (Prompt, error) {
		return EncodeBoxes(boxes, size)
	})
}

// decode 先检查会话, 再构造张量并推理
func (d *MaskDecoder) decode(res *EncodeResult, encode func(Size) (Prompt, error)) (*DecodeResult, error) {
	s, release, err := d.manager.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if res == nil {
		return nil, fmt.Errorf("%w: 图片特征为空", ErrInvalidPrompt)
	}

	prompt, err := encode(res.size)
	if err != nil {
		return nil, err
	}
	inputs, err := BuildDecoderInputs(res.embedding, prompt)
	if err != nil {
		return nil, err
	}

	// Decoder 推理
	outputs, err := d.manager.run(s.decoder, &d.manager.decMu, inputs, decoderOutputs)
	if err != nil {
		return nil, err
	}

	return &DecodeResult{
		Masks:          outputs[outMasks],
		IoUPredictions: outputs[outIouPred],
		LowResMasks:    outputs[outLowResMasks],
	}, nil
}

// Best 返回得分最高的 mask 下标和得分
func (r *DecodeResult) Best() (int, float32) {
	bestIdx := 0
	bestScore := float32(-100.0)
	for i, s := range r.IoUPredictions.Data {
		if s > bestScore {
			bestScore = s
			bestIdx = i
		}
	}
	return bestIdx, bestScore
}

// MaskImage 将第 i 个 mask 二值化并缩放回原图尺寸
//
// mask 位于模型坐标系 (orig_im_size = 模型尺寸), 按轴独立缩放, 与 ToModelSpace 对应。
func (r *DecodeResult) MaskImage(i int, size Size) (*image.Gray, error) {
	shape := r.Masks.Shape
	if len(shape) != 4 {
		return nil, fmt.Errorf("mask 形状非法: %v", shape)
	}
	count, h, w := int(shape[1]), int(shape[2]), int(shape[3])
	if i < 0 || i >= count {
		return nil, fmt.Errorf("mask 下标越界: %d (共 %d 个)", i, count)
	}
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("图片尺寸非法: %dx%d", size.Width, size.Height)
	}

	start := i * h * w
	logits := r.Masks.Data[start : start+h*w]

	img := image.NewGray(image.Rect(0, 0, size.Width, size.Height))
	copy(img.Pix, upscaleMaskLogits(logits, w, h, size.Width, size.Height))
	return img, nil
}

// upscaleMaskLogits 最近邻缩放并二值化 (0 or 255)
func upscaleMaskLogits(logits []float32, srcW, srcH, dstW, dstH int) []uint8 {
	output := make([]uint8, dstW*dstH)
	xRatio := float32(srcW) / float32(dstW)
	yRatio := float32(srcH) / float32(dstH)

	for y := 0; y < dstH; y++ {
		srcY := min(int(float32(y)*yRatio), srcH-1)
		for x := 0; x < dstW; x++ {
			srcX := min(int(float32(x)*xRatio), srcW-1)
			if logits[srcY*srcW+srcX] > maskThreshold {
				output[y*dstW+x] = 255
			}
		}
	}
	return output
}
