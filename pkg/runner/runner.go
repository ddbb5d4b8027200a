// Package runner 管理单个外部 Agent 进程的完整生命周期：
// 启动、基于日志轮询的就绪检测、优雅/强制停止与退出码获取。
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agent-runner/pkg/logger"
	"github.com/agent-runner/pkg/metrics"
)

const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultReadyTimeout = 10 * time.Second
	DefaultGracePeriod  = 5 * time.Second
	DefaultKillTimeout  = 2 * time.Second
)

// Options Runner 参数，零值字段使用默认值
type Options struct {
	Binary     string
	Args       []string
	ConfigFlag string // 为空时配置文件作为最后一个位置参数
	Env        []string
	WorkDir    string
	LogGlob    string // 相对路径相对于 WorkDir（未设置时相对于当前目录）
	OutputPath string // Agent stdout/stderr 追加写入的文件，相对路径同 LogGlob

	PollInterval time.Duration
	ReadyTimeout time.Duration
	GracePeriod  time.Duration
	KillTimeout  time.Duration
	StopSignal   os.Signal
	WatchFiles   bool

	Metrics *metrics.RunnerMetrics
}

// Runner 启动并管理 Agent 进程，每个 ProcessHandle 由单一调用方使用
type Runner struct {
	opts Options
}

// New 创建 Runner
func New(opts Options) (*Runner, error) {
	if opts.LogGlob == "" {
		return nil, errors.New("log glob is required")
	}
	if opts.WorkDir != "" && !filepath.IsAbs(opts.LogGlob) {
		opts.LogGlob = filepath.Join(opts.WorkDir, opts.LogGlob)
	}
	if opts.WorkDir != "" && opts.OutputPath != "" && !filepath.IsAbs(opts.OutputPath) {
		opts.OutputPath = filepath.Join(opts.WorkDir, opts.OutputPath)
	}
	if _, err := filepath.Match(opts.LogGlob, ""); err != nil {
		return nil, fmt.Errorf("log glob %q: %w", opts.LogGlob, err)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.KillTimeout <= 0 {
		opts.KillTimeout = DefaultKillTimeout
	}
	if opts.StopSignal == nil {
		sig, err := ParseSignal("SIGTERM")
		if err != nil {
			return nil, err
		}
		opts.StopSignal = sig
	}
	opts.Args = append([]string(nil), opts.Args...)
	opts.Env = append([]string(nil), opts.Env...)
	return &Runner{opts: opts}, nil
}

// Options 返回填充默认值后的参数
func (r *Runner) Options() Options { return r.opts }

// Start 使用给定配置文件启动 Agent。
// 失败时返回 *LaunchError 且不创建句柄；成功时句柄处于 Starting 状态。
func (r *Runner) Start(ctx context.Context, configPath string) (*ProcessHandle, error) {
	h, err := r.start(ctx, configPath)
	if err != nil {
		r.opts.Metrics.ObserveStart(false)
		logger.Error("agent launch failed", zap.String("binary", r.opts.Binary),
			zap.String("config", configPath), zap.Error(err))
		return nil, err
	}
	r.opts.Metrics.ObserveStart(true)
	logger.Info("agent started",
		zap.String("handle", h.id),
		zap.Int("pid", h.pid),
		zap.String("binary", r.opts.Binary),
		zap.String("config", h.configPath),
		zap.String("log_glob", r.opts.LogGlob))
	return h, nil
}

func (r *Runner) start(ctx context.Context, configPath string) (*ProcessHandle, error) {
	launchErr := func(reason string, err error) error {
		return &LaunchError{Binary: r.opts.Binary, ConfigPath: configPath, Reason: reason, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, launchErr("canceled", err)
	}
	if r.opts.Binary == "" {
		return nil, launchErr("binary not configured", nil)
	}
	// 1. 可执行文件
	binPath, err := exec.LookPath(r.opts.Binary)
	if err != nil {
		return nil, launchErr("binary not found", err)
	}
	// 2. 配置文件必须存在且是普通文件
	if configPath == "" {
		return nil, launchErr("config path is empty", nil)
	}
	info, err := os.Stat(configPath)
	if err != nil {
		return nil, launchErr("invalid config path", err)
	}
	if info.IsDir() {
		return nil, launchErr("config path is a directory", nil)
	}
	absConfig, err := filepath.Abs(configPath)
	if err != nil {
		return nil, launchErr("invalid config path", err)
	}

	// 3. 日志流：忽略启动前已有的内容，只匹配本次运行的输出
	stream, err := NewLogStream(r.opts.LogGlob)
	if err != nil {
		return nil, launchErr("invalid log glob", err)
	}
	if err := stream.SkipExisting(); err != nil {
		return nil, launchErr("scan existing logs", err)
	}

	args := append([]string(nil), r.opts.Args...)
	if r.opts.ConfigFlag != "" {
		args = append(args, r.opts.ConfigFlag, absConfig)
	} else {
		args = append(args, absConfig)
	}

	// 不使用 exec.CommandContext：ctx 只约束启动过程，不能在之后杀掉 Agent
	cmd := exec.Command(binPath, args...)
	cmd.Dir = r.opts.WorkDir
	cmd.Env = append(os.Environ(), r.opts.Env...)
	cmd.SysProcAttr = sysProcAttr()

	// cmd.Stdin 为 nil 即 /dev/null
	var output io.Closer
	if r.opts.OutputPath != "" {
		f, err := openOutput(r.opts.OutputPath)
		if err != nil {
			return nil, launchErr("open output file", err)
		}
		cmd.Stdout = f
		cmd.Stderr = f
		output = f
	}

	h := newHandle(uuid.NewString(), absConfig, stream)
	h.onTransition = r.observeTransition
	if err := h.transition(StateStarting); err != nil {
		return nil, launchErr("lifecycle", err)
	}

	if err := cmd.Start(); err != nil {
		if output != nil {
			_ = output.Close()
		}
		return nil, launchErr("start process", err)
	}
	h.cmd = cmd
	h.pid = cmd.Process.Pid
	h.startedAt = time.Now()

	go r.reap(h, output)
	return h, nil
}

// reap 回收进程并记录退出码；外部杀死的进程同样在这里进入 Exited
func (r *Runner) reap(h *ProcessHandle, output io.Closer) {
	err := h.cmd.Wait()
	code := exitCodeOf(h.cmd.ProcessState)
	if output != nil {
		if cerr := output.Close(); cerr != nil {
			logger.Warn("close agent output failed", zap.String("handle", h.id), zap.Error(cerr))
		}
	}
	if err != nil && h.cmd.ProcessState == nil {
		logger.Error("wait for agent failed", zap.String("handle", h.id), zap.Error(err))
	}
	h.markExited(code)
	logger.Info("agent exited",
		zap.String("handle", h.id),
		zap.Int("pid", h.pid),
		zap.Int("exit_code", code),
		zap.Duration("uptime", time.Since(h.startedAt)))
}

func (r *Runner) observeTransition(h *ProcessHandle, from, to LifecycleState) {
	r.opts.Metrics.SetState(int(to))
	if to == StateExited {
		if code, ok := h.ExitCode(); ok {
			r.opts.Metrics.SetExitCode(code)
		}
	}
	logger.Debug("agent lifecycle transition",
		zap.String("handle", h.id),
		zap.String("from", from.String()),
		zap.String("to", to.String()))
}

func openOutput(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
