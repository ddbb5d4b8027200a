package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/agent-runner/pkg/goid"
)

type Logger = zap.Logger

// Options 日志参数，与 config.ZapLogConfig 字段一一对应
type Options struct {
	Level     string
	Format    string // console | json
	Path      string
	MaxSize   int // MB
	MaxBackup int
	MaxAge    int // 天
}

// filePattern rotatelogs 文件名（strftime）
const filePattern = "agent-runner-%Y%m%d.log"

// FileName 返回 t 当天写入的日志文件路径，与 rotatelogs 生成的文件名一致
func FileName(dir string, t time.Time) string {
	return filepath.Join(dir, "agent-runner-"+t.Format("20060102")+".log")
}

var (
	mu               sync.RWMutex
	baseLogger       = zap.NewNop()
	defaultComponent = "agent-runner"
)

// ParseLevel 未知级别按 info 处理
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "dbg", "debug":
		return zapcore.DebugLevel
	case "war", "warn":
		return zapcore.WarnLevel
	case "err", "error":
		return zapcore.ErrorLevel
	case "dpanic":
		return zapcore.DPanicLevel
	case "pan", "panic":
		return zapcore.PanicLevel
	case "fat", "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Init 初始化全局日志：stdout 控制台输出 + 按天轮转的 JSON 文件
func Init(opts Options) error {
	l, err := New(opts)
	if err != nil {
		return err
	}
	Use(l)
	return nil
}

// New 按参数构建 logger，不修改全局实例
func New(opts Options) (*zap.Logger, error) {
	level := ParseLevel(opts.Level)

	if err := os.MkdirAll(opts.Path, 0755); err != nil {
		return nil, fmt.Errorf("create log dir %s: %w", opts.Path, err)
	}

	rotateOpts := []rotatelogs.Option{
		rotatelogs.WithRotationTime(24 * time.Hour),
	}
	if opts.MaxSize > 0 {
		rotateOpts = append(rotateOpts, rotatelogs.WithRotationSize(int64(opts.MaxSize)*1024*1024))
	}
	// rotatelogs 不允许同时设置 MaxAge 与 RotationCount
	if opts.MaxBackup > 0 {
		rotateOpts = append(rotateOpts, rotatelogs.WithRotationCount(uint(opts.MaxBackup)))
	} else {
		maxAge := opts.MaxAge
		if maxAge <= 0 {
			maxAge = 7
		}
		rotateOpts = append(rotateOpts, rotatelogs.WithMaxAge(time.Duration(maxAge)*24*time.Hour))
	}
	writer, err := rotatelogs.New(filepath.Join(opts.Path, filePattern), rotateOpts...)
	if err != nil {
		return nil, fmt.Errorf("create rotate writer: %w", err)
	}

	var stdoutEncoder zapcore.Encoder
	if strings.EqualFold(opts.Format, "json") {
		stdoutEncoder = zapcore.NewJSONEncoder(jsonEncoderConfig())
	} else {
		stdoutEncoder = zapcore.NewConsoleEncoder(consoleEncoderConfig())
	}

	core := zapcore.NewTee(
		zapcore.NewCore(stdoutEncoder, zapcore.AddSync(os.Stdout), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(jsonEncoderConfig()), zapcore.AddSync(writer), level),
	)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.ConsoleSeparator = " "
	cfg.EncodeLevel = coloredLevelEncoder
	// 控制台彩色时间
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(fmt.Sprintf("\033[34m%s\033[0m", t.Format("2006-01-02 15:04:05.000 -07:00")))
	}
	// Caller 两级路径
	cfg.EncodeCaller = func(c zapcore.EntryCaller, enc zapcore.PrimitiveArrayEncoder) {
		rel := filepath.Join(filepath.Base(filepath.Dir(c.File)), filepath.Base(c.File))
		enc.AppendString(fmt.Sprintf("%s:%d", rel, c.Line))
	}
	return cfg
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05.000 -07:00"))
	}
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	return cfg
}

func coloredLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var levelStr string
	switch level {
	case zapcore.DebugLevel:
		levelStr = "\033[36mDEBUG\033[0m"
	case zapcore.InfoLevel:
		levelStr = "\033[32mINFO \033[0m"
	case zapcore.WarnLevel:
		levelStr = "\033[33mWARN \033[0m"
	case zapcore.ErrorLevel:
		levelStr = "\033[31mERROR\033[0m"
	case zapcore.DPanicLevel:
		levelStr = "\033[35mDPANIC\033[0m"
	case zapcore.PanicLevel:
		levelStr = "\033[35mPANIC\033[0m"
	case zapcore.FatalLevel:
		levelStr = "\033[35mFATAL\033[0m"
	default:
		levelStr = "UNK  "
	}
	enc.AppendString(levelStr)
}

// Use 替换全局 logger（测试中可传入 zaptest/observer 构建的实例），nil 等价于 InitNop
func Use(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	baseLogger = l
	mu.Unlock()
}

// InitNop 丢弃所有日志
func InitNop() { Use(nil) }

func SetDefaultComponent(component string) {
	mu.Lock()
	defer mu.Unlock()
	defaultComponent = component
}

func GetDefaultComponent() string {
	mu.RLock()
	defer mu.RUnlock()
	return defaultComponent
}

// GetLogger 返回全局 logger，未初始化时为 no-op
func GetLogger() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return baseLogger
}

func log(level zapcore.Level, msg string, fields ...zapcore.Field) {
	mu.RLock()
	l := baseLogger
	component := defaultComponent
	mu.RUnlock()

	ce := l.WithOptions(zap.AddCallerSkip(2)).Check(level, msg)
	if ce == nil {
		return
	}
	merged := make([]zapcore.Field, 0, len(fields)+2)
	merged = append(merged, zap.String("component", component), zap.String("goid", goid.String()))
	merged = append(merged, fields...)
	ce.Write(merged...)
}

func Debug(msg string, fields ...zapcore.Field) { log(zap.DebugLevel, msg, fields...) }
func Info(msg string, fields ...zapcore.Field)  { log(zap.InfoLevel, msg, fields...) }
func Warn(msg string, fields ...zapcore.Field)  { log(zap.WarnLevel, msg, fields...) }
func Error(msg string, fields ...zapcore.Field) { log(zap.ErrorLevel, msg, fields...) }
func Panic(msg string, fields ...zapcore.Field) { log(zap.PanicLevel, msg, fields...) }
func Fatal(msg string, fields ...zapcore.Field) { log(zap.FatalLevel, msg, fields...) }

// Sync 刷盘；stdout 为终端/管道时的 EINVAL/ENOTTY 忽略
func Sync() error {
	err := GetLogger().Sync()
	if err != nil && isStdSyncErr(err) {
		return nil
	}
	return err
}

func isStdSyncErr(err error) bool {
	s := err.Error()
	return strings.Contains(s, "/dev/stdout") || strings.Contains(s, "invalid argument") ||
		strings.Contains(s, "inappropriate ioctl")
}
