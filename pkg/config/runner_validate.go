package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/agent-runner/pkg/logger"
	"github.com/agent-runner/pkg/runner"
)

// Validate Runner 配置校验
// 规则说明
//   - StopSignal   必须是当前平台可识别的信号名（SIGTERM / TERM / 15）
//   - ReadyMatch   regexp 模式下 ReadyPattern 必须能编译
//   - LogGlob      glob 语法合法
//   - Env          必须是 KEY=VALUE
//   - PollInterval 不能大于 ReadyTimeout，否则超时前最多只会读一次
func (r *RunnerConfig) Validate() error {
	if err := valid.Struct(r); err != nil {
		return fmt.Errorf("runner 配置字段非法: %w", err)
	}
	if strings.TrimSpace(r.Binary) == "" {
		return fmt.Errorf("runner.binary cannot be empty")
	}
	if _, err := runner.ParseSignal(r.StopSignal); err != nil {
		return fmt.Errorf("runner.stop_signal invalid: %w", err)
	}
	if r.ReadyMatch == "regexp" {
		if _, err := regexp.Compile(r.ReadyPattern); err != nil {
			return fmt.Errorf("runner.ready_pattern is not a valid regexp, got %q: %w", r.ReadyPattern, err)
		}
	}
	if r.WorkDir != "" {
		if err := isDir(r.WorkDir); err != nil {
			return fmt.Errorf("runner.work_dir invalid, got %q: %w", r.WorkDir, err)
		}
	}
	if _, err := filepath.Match(r.LogGlob, ""); err != nil {
		return fmt.Errorf("runner.log_glob malformed pattern, got %q: %w", r.LogGlob, err)
	}
	for _, kv := range r.Env {
		if !strings.Contains(kv, "=") || strings.HasPrefix(kv, "=") {
			return fmt.Errorf("runner.env entry must be KEY=VALUE, got %q", kv)
		}
	}
	if r.PollInterval > r.ReadyTimeout {
		return fmt.Errorf("runner.poll_interval (%s) must not exceed runner.ready_timeout (%s)", r.PollInterval, r.ReadyTimeout)
	}
	return nil
}

// ValidateLogOverlap runner.log_glob 不能覆盖本进程自己的日志文件（log.path），
// 否则 --echo 会回读自身输出，调试日志里的匹配串也会被当成就绪信号
func (r *RunnerConfig) ValidateLogOverlap(logPath string) error {
	glob := r.LogGlob
	if r.WorkDir != "" && !filepath.IsAbs(glob) {
		glob = filepath.Join(r.WorkDir, glob)
	}
	absGlob, err := filepath.Abs(glob)
	if err != nil {
		return fmt.Errorf("runner.log_glob failed to resolve, got %q: %w", r.LogGlob, err)
	}
	absLog, err := filepath.Abs(logPath)
	if err != nil {
		return fmt.Errorf("log.path failed to resolve, got %q: %w", logPath, err)
	}

	own := logger.FileName(absLog, time.Now())
	overlap := filepath.Dir(absGlob) == absLog
	for _, name := range []string{own, own + ".1"} {
		if ok, _ := filepath.Match(absGlob, name); ok {
			overlap = true
		}
	}
	if overlap {
		return fmt.Errorf("runner.log_glob %q matches files written to log.path %q; use separate directories", r.LogGlob, logPath)
	}
	return nil
}

// ReadyPredicate 根据配置构造就绪匹配条件
func (r *RunnerConfig) ReadyPredicate() (runner.Predicate, error) {
	if r.ReadyMatch == "regexp" {
		return runner.MatchRegexp(r.ReadyPattern)
	}
	return runner.Contains(r.ReadyPattern), nil
}

// Options 把配置转换为 runner.Options
func (r *RunnerConfig) Options() (runner.Options, error) {
	sig, err := runner.ParseSignal(r.StopSignal)
	if err != nil {
		return runner.Options{}, err
	}
	return runner.Options{
		Binary:       r.Binary,
		Args:         append([]string(nil), r.Args...),
		ConfigFlag:   r.ConfigFlag,
		Env:          append([]string(nil), r.Env...),
		WorkDir:      r.WorkDir,
		LogGlob:      r.LogGlob,
		OutputPath:   r.OutputPath,
		PollInterval: r.PollInterval,
		ReadyTimeout: r.ReadyTimeout,
		GracePeriod:  r.GracePeriod,
		KillTimeout:  r.KillTimeout,
		StopSignal:   sig,
		WatchFiles:   r.WatchFiles,
	}, nil
}

func isDir(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !stat.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
