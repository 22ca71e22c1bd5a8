package segment

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/getcharzp/go-sam/engine"
)

type runFunc func(inputs map[string]*engine.Tensor, outputNames []string) (map[string]*engine.Tensor, error)

// fakeSession 记录输入, 销毁后再调用 Run 会报错
type fakeSession struct {
	path      string
	spec      engine.SessionSpec
	run       runFunc
	calls     atomic.Int32
	destroyed atomic.Bool

	mu         sync.Mutex
	lastInputs map[string]*engine.Tensor
	lastOpts   engine.RunOptions
}

func (s *fakeSession) Run(inputs map[string]*engine.Tensor, outputNames []string, opts engine.RunOptions) (map[string]*engine.Tensor, error) {
	if s.destroyed.Load() {
		return nil, errors.New("run on destroyed session")
	}
	s.calls.Add(1)
	s.mu.Lock()
	s.lastInputs = inputs
	s.lastOpts = opts
	s.mu.Unlock()
	return s.run(inputs, outputNames)
}

func (s *fakeSession) Destroy() error {
	s.destroyed.Store(true)
	return nil
}

func (s *fakeSession) inputs() map[string]*engine.Tensor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastInputs
}

// fakeEnv 按模型路径创建 fakeSession
type fakeEnv struct {
	mu       sync.Mutex
	sessions []*fakeSession
	loadErr  error
	runs     map[string]runFunc
	closed   bool
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		runs: map[string]runFunc{
			"encoder.onnx": encoderRun,
			"decoder.onnx": decoderRun,
		},
	}
}

func (e *fakeEnv) LoadSession(modelPath string, spec engine.SessionSpec) (engine.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loadErr != nil {
		return nil, e.loadErr
	}
	run, ok := e.runs[modelPath]
	if !ok {
		return nil, fmt.Errorf("model not found: %s", modelPath)
	}
	s := &fakeSession{path: modelPath, spec: spec, run: run}
	e.sessions = append(e.sessions, s)
	return s, nil
}

func (e *fakeEnv) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *fakeEnv) setLoadErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadErr = err
}

func (e *fakeEnv) setRun(path string, run runFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runs[path] = run
}

// session 返回该模型最近一次加载的会话
func (e *fakeEnv) session(path string) *fakeSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.sessions) - 1; i >= 0; i-- {
		if e.sessions[i].path == path {
			return e.sessions[i]
		}
	}
	return nil
}

func encoderRun(_ map[string]*engine.Tensor, _ []string) (map[string]*engine.Tensor, error) {
	return map[string]*engine.Tensor{
		imageEmbeddings: engine.Zeros(1, 256, 2, 2),
	}, nil
}

// decoderRun 返回 3 个 4x6 mask, 第二个得分最高且左半边为前景
func decoderRun(_ map[string]*engine.Tensor, _ []string) (map[string]*engine.Tensor, error) {
	masks := engine.Zeros(1, 3, 4, 6)
	for i := range masks.Data {
		masks.Data[i] = -1
	}
	plane := 4 * 6
	for y := 0; y < 4; y++ {
		for x := 0; x < 3; x++ {
			masks.Data[plane+y*6+x] = 2
		}
	}
	return map[string]*engine.Tensor{
		outMasks:       masks,
		outIouPred:     {Shape: []int64{1, 3}, Data: []float32{0.2, 0.9, 0.5}},
		outLowResMasks: engine.Zeros(1, 3, 256, 256),
	}, nil
}

func testConfig() Config {
	return Config{
		EncodeModelPath: "encoder.onnx",
		DecodeModelPath: "decoder.onnx",
	}
}

// newTestManager 创建使用 fakeEnv 的 Manager
func newTestManager(cfg Config, opts ...Option) (*Manager, *fakeEnv) {
	env := newFakeEnv()
	opts = append(opts, WithOpener(func(Config) (engine.Environment, error) {
		return env, nil
	}))
	return NewManager(cfg, opts...), env
}

// newReadyManager 创建并初始化 Manager
func newReadyManager(cfg Config) (*Manager, *fakeEnv, error) {
	m, env := newTestManager(cfg)
	if err := m.Initialize(); err != nil {
		return nil, nil, err
	}
	return m, env, nil
}
