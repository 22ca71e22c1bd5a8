package segment

import (
	"fmt"

	"github.com/getcharzp/go-sam/engine"
)

// BuildDecoderInputs 组装解码网络需要的输入张量
//
// 只有 point_coords / point_labels 随提示变化, 其余为固定值:
//
//	mask_input:     [1,1,256,256] 全零
//	has_mask_input: [1] = 0
//	orig_im_size:   [2] = [ModelWidth, ModelHeight]
//
// orig_im_size 传入的是模型输入尺寸而非原图尺寸, 输出的 mask 因此位于模型坐标系。
func BuildDecoderInputs(embedding *engine.Tensor, prompt Prompt) (map[string]*engine.Tensor, error) {
	if embedding == nil {
		return nil, fmt.Errorf("%w: 图片特征为空", ErrInvalidPrompt)
	}
	if len(prompt.Coords) != len(prompt.Labels) {
		return nil, fmt.Errorf("%w: 坐标个数(%d)与标签个数(%d)不一致",
			ErrInvalidPrompt, len(prompt.Coords), len(prompt.Labels))
	}

	n := int64(len(prompt.Coords))
	coords := make([]float32, 0, n*2)
	for _, c := range prompt.Coords {
		coords = append(coords, c.X, c.Y)
	}
	labels := append([]float32(nil), prompt.Labels...)

	return map[string]*engine.Tensor{
		imageEmbeddings: embedding,
		pointCoords:     {Shape: []int64{1, n, 2}, Data: coords},
		pointLabels:     {Shape: []int64{1, n}, Data: labels},
		maskInput:       engine.Zeros(1, 1, maskInputSize, maskInputSize),
		hasMaskInput:    {Shape: []int64{1}, Data: []float32{0}},
		origImSize:      {Shape: []int64{2}, Data: []float32{ModelWidth, ModelHeight}},
	}, nil
}
