package segment

import (
	"github.com/getcharzp/go-sam/engine"
	"go.uber.org/zap"
)

// OpenFunc 创建推理运行环境
type OpenFunc func(cfg Config) (engine.Environment, error)

// Option 配置 Manager
type Option func(*Manager)

// WithLogger 设置日志 (默认: zap.NewNop())
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithOpener 替换运行环境的创建方式 (默认: ONNX Runtime)
func WithOpener(open OpenFunc) Option {
	return func(m *Manager) {
		if open != nil {
			m.open = open
		}
	}
}

// WithRunLogLevel 设置单次推理的日志级别, 默认与 Config.LogLevel 一致
func WithRunLogLevel(level engine.LogLevel) Option {
	return func(m *Manager) {
		m.runOpts.LogLevel = level
	}
}
