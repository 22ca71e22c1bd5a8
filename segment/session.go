package segment

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	sam "github.com/getcharzp/go-sam"
	"github.com/getcharzp/go-sam/engine"
	"github.com/up-zero/gotool/convertutil"
	"go.uber.org/zap"
)

// State 会话生命周期状态
type State int32

const (
	StateUninitialized State = iota
	StateReady
	StateReloading
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateReloading:
		return "reloading"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// sessions 一组编码/解码会话, 安装后不再修改
type sessions struct {
	encoder engine.Session
	decoder engine.Session
}

// Manager 持有推理环境与编码/解码会话
//
// Encode/Decode 持读锁, Reload/Close 持写锁:
// 进行中的推理要么使用旧会话完成, 要么等待新会话安装完毕。
type Manager struct {
	config  Config
	open    OpenFunc
	logger  *zap.Logger
	runOpts engine.RunOptions

	mu    sync.RWMutex
	state atomic.Int32
	env   engine.Environment
	cur   *sessions

	// SerializeRuns 时每个会话同一时刻只允许一次推理
	encMu sync.Mutex
	decMu sync.Mutex
}

// NewManager 创建会话管理器, 需调用 Initialize 后才能使用
func NewManager(cfg Config, opts ...Option) *Manager {
	m := &Manager{
		config:  cfg,
		open:    openOnnx,
		logger:  zap.NewNop(),
		runOpts: engine.RunOptions{LogLevel: engine.ParseLogLevel(cfg.LogLevel)},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// openOnnx 默认使用 ONNX Runtime
func openOnnx(cfg Config) (engine.Environment, error) {
	onnxConfig := new(sam.OnnxConfig)
	if err := convertutil.CopyProperties(cfg, onnxConfig); err != nil {
		return nil, fmt.Errorf("复制参数失败: %w", err)
	}
	return onnxConfig.New()
}

// State 当前状态
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Initialize 创建推理环境以及编码/解码会话, 已就绪时直接返回
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == StateReady {
		return nil
	}

	env, err := m.open(m.config)
	if err != nil {
		return fmt.Errorf("初始化推理环境失败: %w", err)
	}
	s, err := m.loadSessions(env)
	if err != nil {
		_ = env.Close()
		return err
	}

	m.env = env
	m.cur = s
	m.state.Store(int32(StateReady))
	m.logger.Info("sam sessions initialized",
		zap.String("encoder", m.config.EncodeModelPath),
		zap.String("decoder", m.config.DecodeModelPath),
		zap.Int("threads", m.threads()))
	return nil
}

// Reload 在现有环境上重建编码/解码会话, 例如模型文件被替换之后
//
// 等待进行中的推理结束后再替换; 重建失败时保留旧会话。
func (m *Manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() != StateReady {
		return fmt.Errorf("%w: 无法重新加载", ErrSessionNotLoaded)
	}
	m.state.Store(int32(StateReloading))
	start := time.Now()

	s, err := m.loadSessions(m.env)
	if err != nil {
		m.state.Store(int32(StateReady))
		m.logger.Warn("sam reload failed, keeping previous sessions", zap.Error(err))
		return err
	}

	old := m.cur
	m.cur = s
	m.state.Store(int32(StateReady))

	if err := old.destroy(); err != nil {
		m.logger.Warn("destroy previous sessions failed", zap.Error(err))
	}
	m.logger.Info("sam sessions reloaded", zap.Duration("cost", time.Since(start)))
	return nil
}

// Close 释放会话和推理环境, 之后可再次 Initialize
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() == StateUninitialized {
		return nil
	}

	var errs []error
	if m.cur != nil {
		if err := m.cur.destroy(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.env != nil {
		if err := m.env.Close(); err != nil {
			errs = append(errs, fmt.Errorf("关闭推理环境失败: %w", err))
		}
	}
	m.cur = nil
	m.env = nil
	m.state.Store(int32(StateUninitialized))
	m.logger.Info("sam sessions closed")
	return errors.Join(errs...)
}

// threads 限制线程数在 [0, NumCPU] 内, 0 表示由引擎决定
func (m *Manager) threads() int {
	n := m.config.NumThreads
	if n <= 0 {
		return 0
	}
	return min(n, runtime.NumCPU())
}

func (m *Manager) sessionOptions() engine.Options {
	format := m.config.ModelFormat
	if format == "" {
		format = "ONNX"
	}
	return engine.Options{
		LogLevel:       engine.ParseLogLevel(m.config.LogLevel),
		IntraOpThreads: m.threads(),
		ModelFormat:    format,
	}
}

// loadSessions 创建编码/解码会话, 失败时不留下半成品
func (m *Manager) loadSessions(env engine.Environment) (*sessions, error) {
	opts := m.sessionOptions()

	enc, err := env.LoadSession(m.config.EncodeModelPath, engine.SessionSpec{
		InputNames:  encoderInputs,
		OutputNames: encoderOutputs,
		Options:     opts,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Encoder 会话失败: %w", err)
	}

	dec, err := env.LoadSession(m.config.DecodeModelPath, engine.SessionSpec{
		InputNames:  decoderInputs,
		OutputNames: decoderOutputs,
		Options:     opts,
	})
	if err != nil {
		_ = enc.Destroy()
		return nil, fmt.Errorf("创建 Decoder 会话失败: %w", err)
	}

	return &sessions{encoder: enc, decoder: dec}, nil
}

// acquire 获取当前会话并持有读锁, 用完后调用 release
func (m *Manager) acquire() (*sessions, func(), error) {
	m.mu.RLock()
	if m.State() != StateReady || m.cur == nil {
		m.mu.RUnlock()
		return nil, nil, ErrSessionNotLoaded
	}
	return m.cur, m.mu.RUnlock, nil
}

// run 执行一次推理并检查约定的输出是否齐全
func (m *Manager) run(session engine.Session, lock *sync.Mutex, inputs map[string]*engine.Tensor, outputNames []string) (map[string]*engine.Tensor, error) {
	if m.config.SerializeRuns {
		lock.Lock()
		defer lock.Unlock()
	}

	start := time.Now()
	outputs, err := session.Run(inputs, outputNames, m.runOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInferenceRunFailed, err)
	}
	for _, name := range outputNames {
		if outputs[name] == nil {
			return nil, fmt.Errorf("%w: %s", ErrOutputMissing, name)
		}
	}
	m.logger.Debug("sam inference",
		zap.Strings("outputs", outputNames),
		zap.Duration("cost", time.Since(start)))
	return outputs, nil
}

func (s *sessions) destroy() error {
	var errs []error
	if s.encoder != nil {
		if err := s.encoder.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("销毁 Encoder 会话失败: %w", err))
		}
	}
	if s.decoder != nil {
		if err := s.decoder.Destroy(); err != nil {
			errs = append(errs, fmt.Errorf("销毁 Decoder 会话失败: %w", err))
		}
	}
	return errors.Join(errs...)
}
