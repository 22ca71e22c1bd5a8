// Package sam 提供 ONNX Runtime 推理环境以及分割结果的绘制工具。
//
// 分割流程位于 segment 包:
//
//	m := segment.NewManager(segment.DefaultConfig())
//	if err := m.Initialize(); err != nil {
//		log.Fatal(err)
//	}
//	defer m.Close()
//
//	res, _ := segment.NewImageEncoder(m, nil).Encode(img)
//	out, _ := segment.NewMaskDecoder(m).DecodePoints(res, points)
package sam

import (
	"fmt"
	"os"
	"runtime"
	"slices"
	"sync"

	"github.com/getcharzp/go-sam/engine"
	ort "github.com/yalue/onnxruntime_go"
)

// modelFormatKey ONNX Runtime 的模型格式配置项
const modelFormatKey = "session.load_model_format"

type OnnxConfig struct {
	// 必填参数
	OnnxRuntimeLibPath string // onnxruntime.dll (或 .so, .dylib) 的路径
	// 可选参数
	UseCuda bool // (可选) 是否启用 CUDA
}

// ONNX Runtime 环境为进程级, 多个 OnnxEnvironment 共享并按引用计数销毁
var (
	envMu   sync.Mutex
	envRefs int
)

// New 初始化 ONNX 环境
func (cfg *OnnxConfig) New() (engine.Environment, error) {
	if cfg.OnnxRuntimeLibPath == "" {
		return nil, fmt.Errorf("OnnxRuntimeLibPath 不能为空")
	}

	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 && !ort.IsInitialized() {
		ort.SetSharedLibraryPath(cfg.OnnxRuntimeLibPath)
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("初始化 ONNX Runtime 环境失败: %w", err)
		}
	}
	envRefs++

	return &OnnxEnvironment{useCuda: cfg.UseCuda}, nil
}

// OnnxEnvironment 基于 ONNX Runtime 的 engine.Environment
type OnnxEnvironment struct {
	useCuda bool
	once    sync.Once
}

// LoadSession 加载模型并创建会话
func (env *OnnxEnvironment) LoadSession(modelPath string, spec engine.SessionSpec) (engine.Session, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("模型文件: %w", err)
	}
	if err := ort.SetEnvironmentLogLevel(ortLogLevel(spec.Options.LogLevel)); err != nil {
		return nil, fmt.Errorf("设置日志级别失败: %w", err)
	}

	// 创建会话选项 (设置线程)
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("创建会话选项失败: %w", err)
	}
	defer func() { _ = options.Destroy() }()

	if spec.Options.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(spec.Options.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("设置线程数失败: %w", err)
		}
	}
	if spec.Options.ModelFormat != "" {
		if err := options.AddSessionConfigEntry(modelFormatKey, spec.Options.ModelFormat); err != nil {
			return nil, fmt.Errorf("设置模型格式失败: %w", err)
		}
	}

	// 启用CUDA
	if env.useCuda {
		cudaOptions, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return nil, fmt.Errorf("创建 CUDAProviderOptions 失败: %w", err)
		}
		defer func() { _ = cudaOptions.Destroy() }()
		if err := options.AppendExecutionProviderCUDA(cudaOptions); err != nil {
			return nil, fmt.Errorf("添加 CUDA 执行提供者失败: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath, spec.InputNames, spec.OutputNames, options)
	if err != nil {
		return nil, fmt.Errorf("创建 ONNX 会话失败: %w", err)
	}

	return &onnxSession{
		session:     session,
		inputNames:  slices.Clone(spec.InputNames),
		outputNames: slices.Clone(spec.OutputNames),
	}, nil
}

// Close 释放环境引用, 最后一个引用释放时销毁 ONNX Runtime 环境
func (env *OnnxEnvironment) Close() error {
	var err error
	env.once.Do(func() {
		envMu.Lock()
		defer envMu.Unlock()
		envRefs--
		if envRefs == 0 && ort.IsInitialized() {
			err = ort.DestroyEnvironment()
		}
	})
	return err
}

// onnxSession ONNX Runtime 的 Run 可并发调用, 输出由 Run 分配
type onnxSession struct {
	session     *ort.DynamicAdvancedSession
	inputNames  []string
	outputNames []string
}

// Run 执行推理
//
// DynamicAdvancedSession 不支持单次推理的日志级别, opts.LogLevel 在这里不生效,
// 日志级别由 LoadSession 在环境级别设置。
func (s *onnxSession) Run(inputs map[string]*engine.Tensor, outputNames []string, opts engine.RunOptions) (map[string]*engine.Tensor, error) {
	for name := range inputs {
		if !slices.Contains(s.inputNames, name) {
			return nil, fmt.Errorf("未知的输入: %s", name)
		}
	}

	// 准备 Input Tensors
	values := make([]ort.Value, len(s.inputNames))
	for i, name := range s.inputNames {
		t, ok := inputs[name]
		if !ok || t == nil {
			return nil, fmt.Errorf("缺少输入: %s", name)
		}
		tensor, err := ort.NewTensor(ort.NewShape(t.Shape...), t.Data)
		if err != nil {
			return nil, fmt.Errorf("创建 %s Tensor 失败: %w", name, err)
		}
		defer func() { _ = tensor.Destroy() }()
		values[i] = tensor
	}

	// nil 由 Run 分配
	outputs := make([]ort.Value, len(s.outputNames))
	if err := s.session.Run(values, outputs); err != nil {
		return nil, err
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				_ = o.Destroy()
			}
		}
	}()

	result := make(map[string]*engine.Tensor, len(outputNames))
	for i, name := range s.outputNames {
		if !slices.Contains(outputNames, name) {
			continue
		}
		tensor, ok := outputs[i].(*ort.Tensor[float32])
		if !ok {
			continue
		}
		// 输出张量随后销毁, 需拷贝
		view := engine.Tensor{Shape: tensor.GetShape(), Data: tensor.GetData()}
		result[name] = view.Clone()
	}
	return result, nil
}

func (s *onnxSession) Destroy() error {
	return s.session.Destroy()
}

func ortLogLevel(l engine.LogLevel) ort.LoggingLevel {
	switch l {
	case engine.LogLevelVerbose:
		return ort.LoggingLevelVerbose
	case engine.LogLevelInfo:
		return ort.LoggingLevelInfo
	case engine.LogLevelError:
		return ort.LoggingLevelError
	case engine.LogLevelFatal:
		return ort.LoggingLevelFatal
	default:
		return ort.LoggingLevelWarning
	}
}

// DefaultLibraryPath 根据运行时环境判断加载哪个库文件
func DefaultLibraryPath() string {
	baseDir := "./lib/"
	libName := "onnxruntime"

	// windows onnxruntime.dll
	if runtime.GOOS == "windows" {
		return baseDir + libName + ".dll"
	}

	// linux darwin ext
	var ext string
	switch runtime.GOOS {
	case "darwin":
		ext = "dylib"
	case "linux":
		ext = "so"
	default:
		return baseDir + libName + "_amd64.so" // 默认返回 linux amd64
	}

	// 拼接完整路径: ./lib/onnxruntime + _ + amd64/arm64 + . + so/dylib
	return fmt.Sprintf("%s%s_%s.%s", baseDir, libName, runtime.GOARCH, ext)
}
