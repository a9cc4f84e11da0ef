package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Model    ModelConfig    `mapstructure:"model"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Lmstfy   LmstfyConfig   `mapstructure:"lmstfy"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

type ServerConfig struct {
	Port        string `mapstructure:"port"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb"`
}

// StorageConfig 本地目录：上传的 CSV、模型文件、输出图片
type StorageConfig struct {
	UploadDir string `mapstructure:"upload_dir"`
	ModelDir  string `mapstructure:"model_dir"`
	StaticDir string `mapstructure:"static_dir"`
}

// ModelConfig Label Spreading 超参数与模型仓库类型
type ModelConfig struct {
	Gamma     float64       `mapstructure:"gamma"`
	Alpha     float64       `mapstructure:"alpha"`
	MaxIter   int           `mapstructure:"max_iter"`
	Tol       float64       `mapstructure:"tol"`
	BatchSize int           `mapstructure:"batch_size"` // 0 表示整体训练
	Registry  string        `mapstructure:"registry"`   // file | db
	LockTTL   time.Duration `mapstructure:"lock_ttl"`   // redis 训练锁过期时间
}

// DatabaseConfig gorm 数据源，driver 为 sqlite 或 mysql
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LmstfyConfig 异步任务队列，Host 为空时不启用异步运行
type LmstfyConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Token     string `mapstructure:"token"`
	Queue     string `mapstructure:"queue"`
}

// WorkerConfig Worker 配置
type WorkerConfig struct {
	Name       string           `mapstructure:"name"`
	Subscriber SubscriberConfig `mapstructure:"subscriber"`
	Processor  ProcessorConfig  `mapstructure:"processor"`
}

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	Threads      int           `mapstructure:"threads"`       // 并发拉取数
	Rate         time.Duration `mapstructure:"rate"`          // 拉取速率
	Timeout      time.Duration `mapstructure:"timeout"`       // 拉取超时
	TTR          time.Duration `mapstructure:"ttr"`           // Time-To-Run
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Threads    int           `mapstructure:"threads"`     // 并发处理数
	BufferSize int           `mapstructure:"buffer_size"` // Channel 缓冲大小
	Timeout    time.Duration `mapstructure:"timeout"`     // 单个任务超时
}

const envPrefix = "TXCLUSTER"

// Load 从配置文件加载配置，环境变量 TXCLUSTER_* 可覆盖文件中的值
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}

	return unmarshal(v)
}

// LoadDefault 加载默认配置文件路径
func LoadDefault() (*Config, error) {
	return Load("config/config.yaml")
}

// FromEnv 只使用默认值和环境变量（测试和无配置文件启动时使用）
func FromEnv() (*Config, error) {
	return unmarshal(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "txcluster")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.max_upload_mb", 512)

	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.model_dir", "model")
	v.SetDefault("storage.static_dir", "static")

	v.SetDefault("model.gamma", 0.25)
	v.SetDefault("model.alpha", 0.2)
	v.SetDefault("model.max_iter", 30)
	v.SetDefault("model.tol", 1e-3)
	v.SetDefault("model.batch_size", 1000)
	v.SetDefault("model.registry", "file")
	v.SetDefault("model.lock_ttl", 10*time.Minute)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "txcluster.db")

	v.SetDefault("redis.db", 0)

	v.SetDefault("lmstfy.port", 7777)
	v.SetDefault("lmstfy.namespace", "txcluster")
	v.SetDefault("lmstfy.queue", "cluster_run")

	v.SetDefault("worker.name", "cluster-run-worker")
	v.SetDefault("worker.subscriber.threads", 1)
	v.SetDefault("worker.subscriber.rate", 100*time.Millisecond)
	v.SetDefault("worker.subscriber.timeout", 3*time.Second)
	v.SetDefault("worker.subscriber.ttr", 12*time.Minute)
	v.SetDefault("worker.subscriber.error_backoff", time.Second)
	v.SetDefault("worker.processor.threads", 1)
	v.SetDefault("worker.processor.buffer_size", 4)
	v.SetDefault("worker.processor.timeout", 10*time.Minute)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	// AutomaticEnv 只对已知 key 生效，这里把所有默认 key 显式绑定一次
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	// 兼容性处理：如果 server.port 为空，使用默认值
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}

	return &cfg, nil
}

// Validate 验证配置完整性
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if c.Storage.UploadDir == "" || c.Storage.ModelDir == "" || c.Storage.StaticDir == "" {
		return fmt.Errorf("storage.upload_dir, storage.model_dir and storage.static_dir are required")
	}
	if c.Model.Gamma <= 0 {
		return fmt.Errorf("model.gamma must be positive")
	}
	if c.Model.Alpha <= 0 || c.Model.Alpha >= 1 {
		return fmt.Errorf("model.alpha must be in (0, 1)")
	}
	if c.Model.MaxIter <= 0 {
		return fmt.Errorf("model.max_iter must be positive")
	}
	if c.Model.BatchSize < 0 {
		return fmt.Errorf("model.batch_size cannot be negative")
	}
	switch c.Model.Registry {
	case "file", "db":
	default:
		return fmt.Errorf("model.registry must be file or db, got %q", c.Model.Registry)
	}
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("database.driver must be sqlite or mysql, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Lmstfy.Host != "" {
		if c.Lmstfy.Token == "" {
			return fmt.Errorf("lmstfy token is required")
		}
		if c.Lmstfy.Queue == "" {
			return fmt.Errorf("lmstfy queue is required")
		}
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required when lmstfy is enabled")
		}
		// TTR 到期后 lmstfy 会重投，必须留出超过单任务超时的余量
		if c.Worker.Subscriber.TTR <= c.Worker.Processor.Timeout {
			return fmt.Errorf("worker.subscriber.ttr (%s) must exceed worker.processor.timeout (%s)",
				c.Worker.Subscriber.TTR, c.Worker.Processor.Timeout)
		}
	}
	return nil
}

// AsyncEnabled 是否配置了异步运行所需的队列
func (c *Config) AsyncEnabled() bool {
	return c.Lmstfy.Host != ""
}
