package engine

import (
	"fmt"
	"math"
)

// Tensor float32 张量, Data 按行优先排列
type Tensor struct {
	Shape []int64
	Data  []float32
}

// NewTensor 创建张量并校验数据长度与形状是否一致
func NewTensor(shape []int64, data []float32) (*Tensor, error) {
	n := ShapeSize(shape)
	if n < 0 {
		return nil, fmt.Errorf("非法的张量形状: %v", shape)
	}
	if int64(len(data)) != n {
		return nil, fmt.Errorf("张量数据长度(%d)与形状 %v 不匹配", len(data), shape)
	}
	return &Tensor{Shape: append([]int64(nil), shape...), Data: data}, nil
}

// Zeros 创建全零张量
func Zeros(shape ...int64) *Tensor {
	n := ShapeSize(shape)
	if n < 0 {
		n = 0
	}
	return &Tensor{Shape: append([]int64(nil), shape...), Data: make([]float32, n)}
}

// ShapeSize 形状对应的元素个数, 维度为负或乘积溢出 int64 时返回 -1
func ShapeSize(shape []int64) int64 {
	n := int64(1)
	for _, d := range shape {
		if d < 0 {
			return -1
		}
		if d != 0 && n > math.MaxInt64/d {
			return -1
		}
		n *= d
	}
	return n
}

// Clone 深拷贝
func (t *Tensor) Clone() *Tensor {
	return &Tensor{
		Shape: append([]int64(nil), t.Shape...),
		Data:  append([]float32(nil), t.Data...),
	}
}
