package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var valid = validator.New()

// Config 全局配置结构体（聚合所有核心模块）
type Config struct {
	Runner  RunnerConfig  `yaml:"runner" mapstructure:"runner" comment:"Agent 进程管理配置"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server" comment:"HTTP服务配置"`
	Monitor MonitorConfig `yaml:"monitor" mapstructure:"monitor" comment:"Agent 进程采样配置"`
	Log     ZapLogConfig  `yaml:"log" mapstructure:"log" comment:"日志配置"`
}

// RunnerConfig 被管理 Agent 的启动、就绪检测与停止参数
type RunnerConfig struct {
	Binary         string        `yaml:"binary" mapstructure:"binary" env:"RUNNER_BINARY" validate:"required" comment:"Agent 可执行文件（PATH 中查找）"`
	Args           []string      `yaml:"args" mapstructure:"args" env:"RUNNER_ARGS" comment:"配置文件参数之前的额外参数"`
	ConfigFlag     string        `yaml:"config_flag" mapstructure:"config_flag" env:"RUNNER_CONFIG_FLAG" comment:"传递配置文件的参数名，为空时作为位置参数" default:"-c"`
	Env            []string      `yaml:"env" mapstructure:"env" env:"RUNNER_ENV" comment:"额外环境变量（KEY=VALUE）"`
	WorkDir        string        `yaml:"work_dir" mapstructure:"work_dir" env:"RUNNER_WORK_DIR" comment:"Agent 工作目录，相对的 log_glob/output_path 以此为基准"`
	LogGlob        string        `yaml:"log_glob" mapstructure:"log_glob" env:"RUNNER_LOG_GLOB" validate:"required" comment:"Agent 日志文件 glob（如 ./log/*）"`
	OutputPath     string        `yaml:"output_path" mapstructure:"output_path" env:"RUNNER_OUTPUT_PATH" comment:"Agent stdout/stderr 追加写入的文件，为空则丢弃"`
	ReadyPattern   string        `yaml:"ready_pattern" mapstructure:"ready_pattern" env:"RUNNER_READY_PATTERN" validate:"required" comment:"就绪日志匹配串" default:"is running"`
	ReadyMatch     string        `yaml:"ready_match" mapstructure:"ready_match" env:"RUNNER_READY_MATCH" validate:"required,oneof=contains regexp" comment:"匹配方式" default:"contains"`
	PollInterval   time.Duration `yaml:"poll_interval" mapstructure:"poll_interval" env:"RUNNER_POLL_INTERVAL" validate:"required,gt=0" comment:"日志轮询间隔" default:"500ms"`
	ReadyTimeout   time.Duration `yaml:"ready_timeout" mapstructure:"ready_timeout" env:"RUNNER_READY_TIMEOUT" validate:"required,gt=0" comment:"就绪等待超时" default:"10s"`
	GracePeriod    time.Duration `yaml:"grace_period" mapstructure:"grace_period" env:"RUNNER_GRACE_PERIOD" validate:"required,gt=0" comment:"优雅退出等待时间，超时后 SIGKILL" default:"5s"`
	KillTimeout    time.Duration `yaml:"kill_timeout" mapstructure:"kill_timeout" env:"RUNNER_KILL_TIMEOUT" validate:"required,gt=0" comment:"SIGKILL 之后等待退出的时间" default:"2s"`
	StopSignal     string        `yaml:"stop_signal" mapstructure:"stop_signal" env:"RUNNER_STOP_SIGNAL" validate:"required" comment:"优雅退出信号" default:"SIGTERM"`
	WatchFiles     bool          `yaml:"watch_files" mapstructure:"watch_files" env:"RUNNER_WATCH_FILES" comment:"是否使用文件事件提前唤醒轮询" default:"true"`
	ExpectExitCode int           `yaml:"expect_exit_code" mapstructure:"expect_exit_code" env:"RUNNER_EXPECT_EXIT_CODE" validate:"gte=0,lte=255" comment:"smoke 命令期望的退出码" default:"0"`
}

// ServerConfig HTTP服务配置（超时统一为time.Duration，支持"30s"解析）
type ServerConfig struct {
	Enable       bool          `yaml:"enable" mapstructure:"enable" env:"SERVER_ENABLE" comment:"是否启动 /metrics /health 服务" default:"false"`
	Addr         string        `yaml:"addr" mapstructure:"addr" env:"SERVER_ADDR" validate:"required,hostname_port" comment:"HTTP监听地址（格式：ip:port）"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" env:"SERVER_READ_TIMEOUT" validate:"required,gt=0" comment:"读取超时时间（如30s）"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" env:"SERVER_WRITE_TIMEOUT" validate:"required,gt=0" comment:"写入超时时间（如30s）"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" validate:"required,gt=0" comment:"空闲连接超时时间（如60s）"`
}

// MonitorConfig Agent 进程资源采样配置
type MonitorConfig struct {
	Enable   bool          `yaml:"enable" mapstructure:"enable" env:"MONITOR_ENABLE" comment:"是否采样 Agent 进程 CPU/内存" default:"false"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval" env:"MONITOR_INTERVAL" validate:"required,gt=0" comment:"采样间隔（如10s）" default:"10s"`
}

// ZapLogConfig 日志配置
type ZapLogConfig struct {
	Level     string `yaml:"level" mapstructure:"level" env:"LOG_LEVEL" validate:"required,oneof=debug info warn error" comment:"日志级别" default:"info"`
	Format    string `yaml:"format" mapstructure:"format" env:"LOG_FORMAT" validate:"required,oneof=json console" comment:"日志格式（json/console）" default:"json"`
	Path      string `yaml:"path" mapstructure:"path" env:"LOG_PATH" validate:"required" comment:"日志存储路径" default:"./logs"`
	MaxSize   int    `yaml:"max_size" mapstructure:"max_size" env:"LOG_MAX_SIZE" validate:"required,gt=0" comment:"单个日志文件最大大小（MB）" default:"100"`
	MaxBackup int    `yaml:"max_backup" mapstructure:"max_backup" env:"LOG_MAX_BACKUP" validate:"gte=0" comment:"日志文件最大备份数" default:"30"`
	MaxAge    int    `yaml:"max_age" mapstructure:"max_age" env:"LOG_MAX_AGE" validate:"gte=0" comment:"日志文件最大保存天数（max_backup 为 0 时生效）" default:"7"`
}

// NewDefaultConfig 创建默认配置（所有字段兜底，避免空指针/非法值）
func NewDefaultConfig() *Config {
	return &Config{
		Runner: RunnerConfig{
			Binary:         "",
			Args:           []string{},
			ConfigFlag:     "-c",
			Env:            []string{},
			LogGlob:        "",
			ReadyPattern:   "is running",
			ReadyMatch:     "contains",
			PollInterval:   500 * time.Millisecond,
			ReadyTimeout:   10 * time.Second,
			GracePeriod:    5 * time.Second,
			KillTimeout:    2 * time.Second,
			StopSignal:     "SIGTERM",
			WatchFiles:     true,
			ExpectExitCode: 0,
		},
		Server: ServerConfig{
			Enable:       false,
			Addr:         "127.0.0.1:9091",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  15 * time.Second,
		},
		Monitor: MonitorConfig{
			Enable:   false,
			Interval: 10 * time.Second,
		},
		Log: ZapLogConfig{
			Level:     "info",
			Format:    "console",
			Path:      "./logs",
			MaxSize:   100,
			MaxBackup: 30,
			MaxAge:    7,
		},
	}
}

// LoadConfigWithCli 支持 time.Duration，(Flags + YAML + ENV)
func LoadConfigWithCli(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	// 1. 绑定 Cobra Flags → Viper
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	// 2. 解析配置文件 (--config)
	configFile, _ := cmd.Flags().GetString("config")
	return load(v, configFile)
}

// LoadFile 仅从 YAML 文件与环境变量加载（无命令行参数）
func LoadFile(configFile string) (*Config, error) {
	return load(viper.New(), configFile)
}

func load(v *viper.Viper, configFile string) (*Config, error) {
	cfg := NewDefaultConfig()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	// 3. 绑定环境变量 ENV -> Viper （RUNNER_BINARY -> runner.binary）
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	// 4. 解码反序列化到结构体（支持 time.Duration）
	decoderConfig := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// 5. 校验配置
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// bindEnvKeys AutomaticEnv 只对已知 key 生效，这里把所有配置项登记一遍
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"runner.binary", "runner.args", "runner.config_flag", "runner.env", "runner.work_dir",
		"runner.log_glob", "runner.output_path", "runner.ready_pattern",
		"runner.ready_match", "runner.poll_interval", "runner.ready_timeout",
		"runner.grace_period", "runner.kill_timeout", "runner.stop_signal",
		"runner.watch_files", "runner.expect_exit_code",
		"server.enable", "server.addr", "server.read_timeout",
		"server.write_timeout", "server.idle_timeout",
		"monitor.enable", "monitor.interval",
		"log.level", "log.format", "log.path", "log.max_size",
		"log.max_backup", "log.max_age",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}

// Validate 配置校验
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	// 	1，校验Runner配置
	if err := c.Runner.Validate(); err != nil {
		return err
	}
	// 	2,校验Server服务配置
	if err := c.Server.Validate(); err != nil {
		return err
	}
	// 	3，校验日志配置
	if err := c.Log.Validate(); err != nil {
		return err
	}
	// 	4，Agent 日志与本进程日志不能重叠
	if err := c.Runner.ValidateLogOverlap(c.Log.Path); err != nil {
		return err
	}
	return nil
}
