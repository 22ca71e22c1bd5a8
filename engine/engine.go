// Package engine 定义推理引擎的边界：张量、会话与运行环境。
//
// segment 包只依赖这里的接口，ONNX Runtime 的实现位于模块根目录，
// 测试可以用假的 Environment 替换。
package engine

import "fmt"

// LogLevel 推理引擎的日志级别
type LogLevel int

const (
	LogLevelVerbose LogLevel = iota
	LogLevelInfo
	LogLevelWarning
	LogLevelError
	LogLevelFatal
)

// ParseLogLevel 解析配置中的日志级别, 无法识别时返回 LogLevelWarning
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "verbose":
		return LogLevelVerbose
	case "info":
		return LogLevelInfo
	case "error":
		return LogLevelError
	case "fatal":
		return LogLevelFatal
	default:
		return LogLevelWarning
	}
}

func (l LogLevel) String() string {
	switch l {
	case LogLevelVerbose:
		return "verbose"
	case LogLevelInfo:
		return "info"
	case LogLevelWarning:
		return "warning"
	case LogLevelError:
		return "error"
	case LogLevelFatal:
		return "fatal"
	default:
		return fmt.Sprintf("LogLevel(%d)", int(l))
	}
}

// Options 创建会话时的参数
type Options struct {
	LogLevel       LogLevel
	IntraOpThreads int    // 0 表示由引擎决定
	ModelFormat    string // 模型格式提示, 如 "ONNX" / "ORT"
}

// SessionSpec 描述一个会话的输入输出名称
type SessionSpec struct {
	InputNames  []string
	OutputNames []string
	Options     Options
}

// RunOptions 单次推理的参数
type RunOptions struct {
	LogLevel LogLevel
}

// Session 已加载的模型会话
type Session interface {
	// Run 执行一次推理, 只返回 outputNames 中引擎实际产出的张量
	Run(inputs map[string]*Tensor, outputNames []string, opts RunOptions) (map[string]*Tensor, error)
	Destroy() error
}

// Environment 推理运行环境, 负责加载会话
type Environment interface {
	LoadSession(modelPath string, spec SessionSpec) (Session, error)
	Close() error
}
