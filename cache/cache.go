// Package cache 缓存图片特征, 同一张图片只需编码一次。
package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/getcharzp/go-sam/engine"
	"github.com/getcharzp/go-sam/segment"
)

// keyPrefix 缓存 key 前缀, 后接图片 MD5
const keyPrefix = "sam:embedding:"

// Store 图片特征缓存, 未命中时返回 (nil, nil)
type Store interface {
	Get(ctx context.Context, imageID string) (*segment.EncodeResult, error)
	Set(ctx context.Context, imageID string, res *segment.EncodeResult) error
	Close() error
}

// Key 图片 ID 对应的缓存 key
func Key(imageID string) string {
	return keyPrefix + imageID
}

// Marshal 序列化特征
//
// 格式 (小端): 原图宽, 原图高, 维数 (uint32), 各维度 (int64), float32 数据
func Marshal(res *segment.EncodeResult) ([]byte, error) {
	emb := res.Embedding()
	if emb == nil {
		return nil, fmt.Errorf("图片特征为空")
	}
	size := res.OriginalSize()

	b := make([]byte, 12+len(emb.Shape)*8+len(emb.Data)*4)
	binary.LittleEndian.PutUint32(b[0:], uint32(size.Width))
	binary.LittleEndian.PutUint32(b[4:], uint32(size.Height))
	binary.LittleEndian.PutUint32(b[8:], uint32(len(emb.Shape)))
	off := 12
	for _, d := range emb.Shape {
		binary.LittleEndian.PutUint64(b[off:], uint64(d))
		off += 8
	}
	for _, v := range emb.Data {
		binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
		off += 4
	}
	return b, nil
}

// Unmarshal 反序列化 Marshal 的结果
func Unmarshal(b []byte) (*segment.EncodeResult, error) {
	if len(b) < 12 {
		return nil, fmt.Errorf("cache: 数据长度(%d)不足", len(b))
	}
	size := segment.Size{
		Width:  int(binary.LittleEndian.Uint32(b[0:])),
		Height: int(binary.LittleEndian.Uint32(b[4:])),
	}
	rank := int(binary.LittleEndian.Uint32(b[8:]))
	off := 12
	if rank > 8 || len(b) < off+rank*8 {
		return nil, fmt.Errorf("cache: 非法的维数 %d", rank)
	}

	shape := make([]int64, rank)
	for i := range shape {
		shape[i] = int64(binary.LittleEndian.Uint64(b[off:]))
		off += 8
	}
	rest := b[off:]
	if len(rest)%4 != 0 {
		return nil, fmt.Errorf("cache: 数据长度 %d 不是 4 的倍数", len(rest))
	}
	data := make([]float32, len(rest)/4)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(rest[i*4:]))
	}

	emb, err := engine.NewTensor(shape, data)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return segment.RestoreEncodeResult(emb, size)
}
