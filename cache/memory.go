package cache

import (
	"context"
	"sync"

	"github.com/getcharzp/go-sam/segment"
)

// Memory 进程内特征缓存, 超过容量时淘汰最早写入的条目
type Memory struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*segment.EncodeResult
	order    []string
}

// NewMemory 创建进程内缓存, capacity <= 0 时为 16
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 16
	}
	return &Memory{
		capacity: capacity,
		items:    make(map[string]*segment.EncodeResult, capacity),
	}
}

func (s *Memory) Get(_ context.Context, imageID string) (*segment.EncodeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[imageID], nil
}

func (s *Memory) Set(_ context.Context, imageID string, res *segment.EncodeResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[imageID]; !ok {
		s.order = append(s.order, imageID)
	}
	s.items[imageID] = res

	for len(s.order) > s.capacity {
		delete(s.items, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

// Len 当前条目数
func (s *Memory) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Memory) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*segment.EncodeResult)
	s.order = nil
	return nil
}
