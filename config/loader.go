// =============================================================================
// 📦 OEF-Go 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("oef.yaml").
//	    WithEnvPrefix("OEF").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 OEF-Go 的完整配置结构
type Config struct {
	// Node OEF 节点连接配置
	Node NodeConfig `yaml:"node" env:"NODE"`

	// Agent 代理身份配置
	Agent AgentConfig `yaml:"agent" env:"AGENT"`

	// Broker 进程内 Broker 配置
	Broker BrokerConfig `yaml:"broker" env:"BROKER"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Metrics 指标配置
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// NodeConfig OEF 节点连接配置
type NodeConfig struct {
	// 节点地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 节点端口
	Port int `yaml:"port" env:"PORT"`
	// 建立 TCP 连接的超时
	DialTimeout time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
	// 握手超时
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" env:"HANDSHAKE_TIMEOUT"`
	// 单帧最大字节数
	MaxFrameSize int `yaml:"max_frame_size" env:"MAX_FRAME_SIZE"`
}

// Address 返回 host:port 形式的节点地址
func (n NodeConfig) Address() string {
	return fmt.Sprintf("%s:%d", n.Addr, n.Port)
}

// AgentConfig 代理身份配置
type AgentConfig struct {
	// 公钥（即代理标识）
	PublicKey string `yaml:"public_key" env:"PUBLIC_KEY"`
}

// BrokerConfig 进程内 Broker 配置
type BrokerConfig struct {
	// 邮箱积压告警阈值，0 表示关闭
	MailboxWarnThreshold int `yaml:"mailbox_warn_threshold" env:"MAILBOX_WARN_THRESHOLD"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 指标命名空间
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// ErrInvalidConfig 配置校验失败
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
	applied    []string
}

// NewLoader 创建新的配置加载器，环境变量前缀默认为 OEF
func NewLoader() *Loader {
	return &Loader{envPrefix: "OEF"}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Applied 返回上一次 Load 实际生效的环境变量名（按字段顺序）
func (l *Loader) Applied() []string {
	return slices.Clone(l.applied)
}

// Load 按 默认值 → YAML 文件 → 环境变量 的顺序构建配置
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()
	l.applied = l.applied[:0]

	if l.configPath != "" {
		if err := l.readFile(cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", l.configPath, err)
		}
	}

	b := envBinder{lookup: os.LookupEnv}
	if err := b.bind(reflect.ValueOf(cfg).Elem(), l.envPrefix); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	l.applied = append(l.applied, b.applied...)

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return cfg, nil
}

// readFile 读取 YAML；文件不存在时保留默认值
func (l *Loader) readFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// =============================================================================
// 🌱 环境变量绑定
// =============================================================================

var durationType = reflect.TypeFor[time.Duration]()

// envBinder 沿 env 标签递归遍历结构体，键名为 PREFIX_SECTION_FIELD
type envBinder struct {
	lookup  func(string) (string, bool)
	applied []string
}

func (b *envBinder) bind(v reflect.Value, prefix string) error {
	t := v.Type()
	for i := range t.NumField() {
		tag := t.Field(i).Tag.Get("env")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + "_" + tag
		field := v.Field(i)

		if field.Kind() == reflect.Struct {
			if err := b.bind(field, key); err != nil {
				return err
			}
			continue
		}

		raw, ok := b.lookup(key)
		if !ok || raw == "" || !field.CanSet() {
			continue
		}
		if err := assign(field, raw); err != nil {
			return fmt.Errorf("%s=%q: %w", key, raw, err)
		}
		b.applied = append(b.applied, key)
	}
	return nil
}

// assign 将字符串解析为字段类型；不支持的类型静默忽略
func assign(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		ok, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(ok)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		parts := strings.Split(raw, ",")
		for i, p := range parts {
			parts[i] = strings.TrimSpace(p)
		}
		field.Set(reflect.ValueOf(parts))
	}
	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 校验配置。所有问题一并返回，且都包装 ErrInvalidConfig
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Node.Addr == "" {
		bad("node addr must not be empty")
	}
	if c.Node.Port <= 0 || c.Node.Port > 65535 {
		bad("node port %d out of range", c.Node.Port)
	}
	if c.Node.DialTimeout < 0 || c.Node.HandshakeTimeout < 0 {
		bad("node timeouts must not be negative")
	}
	if c.Node.MaxFrameSize <= 0 {
		bad("max_frame_size must be positive")
	}
	if c.Broker.MailboxWarnThreshold < 0 {
		bad("mailbox_warn_threshold must not be negative")
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		bad("unknown log format %q", c.Log.Format)
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		bad("sample_rate %v not in [0, 1]", c.Telemetry.SampleRate)
	}

	return errors.Join(errs...)
}
