package config

import (
	"fmt"
	"time"

	"github.com/getcharzp/go-sam/segment"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Upload UploadConfig `mapstructure:"upload"`
	Model  ModelConfig  `mapstructure:"model"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type UploadConfig struct {
	MaxSize     int64 `mapstructure:"max_size"`
	MemoryCache int   `mapstructure:"memory_cache"` // Redis 不可用时进程内缓存的图片数
}

type ModelConfig struct {
	OnnxRuntimeLibPath string `mapstructure:"onnxruntime_lib_path"`
	EncodeModelPath    string `mapstructure:"encode_model_path"`
	DecodeModelPath    string `mapstructure:"decode_model_path"`
	UseCuda            bool   `mapstructure:"use_cuda"`
	NumThreads         int    `mapstructure:"num_threads"`
	LogLevel           string `mapstructure:"log_level"`
	ModelFormat        string `mapstructure:"model_format"`
	SerializeRuns      bool   `mapstructure:"serialize_runs"`
}

// Segment 转换为 segment.Config
func (m ModelConfig) Segment() segment.Config {
	return segment.Config{
		OnnxRuntimeLibPath: m.OnnxRuntimeLibPath,
		EncodeModelPath:    m.EncodeModelPath,
		DecodeModelPath:    m.DecodeModelPath,
		UseCuda:            m.UseCuda,
		NumThreads:         m.NumThreads,
		LogLevel:           m.LogLevel,
		ModelFormat:        m.ModelFormat,
		SerializeRuns:      m.SerializeRuns,
	}
}

// Load 从 YAML 文件加载配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 设置默认值
	setDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// New 加载配置, 失败时返回默认配置
func New(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		return Default()
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("redis.enabled", d.Redis.Enabled)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("redis.ttl", d.Redis.TTL)

	v.SetDefault("upload.max_size", d.Upload.MaxSize)
	v.SetDefault("upload.memory_cache", d.Upload.MemoryCache)

	v.SetDefault("model.onnxruntime_lib_path", d.Model.OnnxRuntimeLibPath)
	v.SetDefault("model.encode_model_path", d.Model.EncodeModelPath)
	v.SetDefault("model.decode_model_path", d.Model.DecodeModelPath)
	v.SetDefault("model.use_cuda", d.Model.UseCuda)
	v.SetDefault("model.num_threads", d.Model.NumThreads)
	v.SetDefault("model.log_level", d.Model.LogLevel)
	v.SetDefault("model.model_format", d.Model.ModelFormat)
	v.SetDefault("model.serialize_runs", d.Model.SerializeRuns)
}

// Default 默认配置
func Default() *Config {
	sc := segment.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Port:         ":8080",
			Mode:         "debug",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Redis: RedisConfig{
			Enabled: true,
			Addr:    "localhost:6379",
			TTL:     time.Hour,
		},
		Upload: UploadConfig{
			MaxSize:     20 * 1024 * 1024,
			MemoryCache: 16,
		},
		Model: ModelConfig{
			OnnxRuntimeLibPath: sc.OnnxRuntimeLibPath,
			EncodeModelPath:    sc.EncodeModelPath,
			DecodeModelPath:    sc.DecodeModelPath,
			UseCuda:            sc.UseCuda,
			NumThreads:         sc.NumThreads,
			LogLevel:           sc.LogLevel,
			ModelFormat:        sc.ModelFormat,
			SerializeRuns:      sc.SerializeRuns,
		},
	}
}
