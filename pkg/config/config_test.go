package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agent-runner/pkg/runner"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func baseYAML(t *testing.T) string {
	return `
runner:
  binary: sh
  log_glob: ./log/*
  ready_pattern: "is running"
  poll_interval: 100ms
  ready_timeout: 3s
log:
  path: ` + filepath.Join(t.TempDir(), "logs") + `
`
}

func TestLoadFileDefaultsAndOverrides(t *testing.T) {
	cfg, err := LoadFile(writeYAML(t, baseYAML(t)))
	require.NoError(t, err)

	assert.Equal(t, "sh", cfg.Runner.Binary)
	assert.Equal(t, "./log/*", cfg.Runner.LogGlob)
	assert.Equal(t, 100*time.Millisecond, cfg.Runner.PollInterval)
	assert.Equal(t, 3*time.Second, cfg.Runner.ReadyTimeout)
	// 未配置的字段保持默认值
	assert.Equal(t, "-c", cfg.Runner.ConfigFlag)
	assert.Equal(t, 5*time.Second, cfg.Runner.GracePeriod)
	assert.Equal(t, "SIGTERM", cfg.Runner.StopSignal)
	assert.True(t, cfg.Runner.WatchFiles)
	assert.Equal(t, "127.0.0.1:9091", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Monitor.Interval)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("RUNNER_GRACE_PERIOD", "750ms")
	t.Setenv("RUNNER_ARGS", "-e,-v")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SERVER_ADDR", "127.0.0.1:19091")

	cfg, err := LoadFile(writeYAML(t, baseYAML(t)))
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, cfg.Runner.GracePeriod)
	assert.Equal(t, []string{"-e", "-v"}, cfg.Runner.Args)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:19091", cfg.Server.Addr)
}

func TestLoadConfigWithCliFlagWins(t *testing.T) {
	t.Setenv("RUNNER_READY_TIMEOUT", "7s")

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().Duration("runner.ready_timeout", 10*time.Second, "")
	require.NoError(t, cmd.Flags().Parse([]string{
		"--config", writeYAML(t, baseYAML(t)),
		"--runner.ready_timeout", "2s",
	}))

	cfg, err := LoadConfigWithCli(cmd)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Runner.ReadyTimeout)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func validRunner() RunnerConfig {
	r := NewDefaultConfig().Runner
	r.Binary = "sh"
	r.LogGlob = "log/*"
	return r
}

func TestRunnerValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *RunnerConfig)
		errMsg string
	}{
		{"ok", func(r *RunnerConfig) {}, ""},
		{"missing binary", func(r *RunnerConfig) { r.Binary = "" }, "Binary"},
		{"blank binary", func(r *RunnerConfig) { r.Binary = "   " }, "runner.binary"},
		{"missing log glob", func(r *RunnerConfig) { r.LogGlob = "" }, "LogGlob"},
		{"bad glob", func(r *RunnerConfig) { r.LogGlob = "log/[" }, "runner.log_glob"},
		{"bad signal", func(r *RunnerConfig) { r.StopSignal = "SIGNOPE" }, "runner.stop_signal"},
		{"bad match mode", func(r *RunnerConfig) { r.ReadyMatch = "glob" }, "ReadyMatch"},
		{"bad regexp", func(r *RunnerConfig) { r.ReadyMatch = "regexp"; r.ReadyPattern = "(" }, "runner.ready_pattern"},
		{"bad env", func(r *RunnerConfig) { r.Env = []string{"NOEQUALS"} }, "runner.env"},
		{"poll exceeds timeout", func(r *RunnerConfig) { r.PollInterval = time.Minute }, "runner.poll_interval"},
		{"exit code range", func(r *RunnerConfig) { r.ExpectExitCode = 300 }, "ExpectExitCode"},
		{"work dir missing", func(r *RunnerConfig) { r.WorkDir = "/definitely/not/here" }, "runner.work_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRunner()
			tt.mutate(&r)
			err := r.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRunnerOptionsAndPredicate(t *testing.T) {
	r := validRunner()
	r.StopSignal = "INT"
	r.WorkDir = t.TempDir()

	opts, err := r.Options()
	require.NoError(t, err)
	assert.Equal(t, "sh", opts.Binary)
	assert.Equal(t, r.WorkDir, opts.WorkDir)
	assert.Equal(t, "interrupt", opts.StopSignal.String())

	p, err := r.ReadyPredicate()
	require.NoError(t, err)
	assert.Equal(t, runner.Contains("is running"), p)

	r.ReadyMatch = "regexp"
	r.ReadyPattern = `^\w+ is running`
	p, err = r.ReadyPredicate()
	require.NoError(t, err)
	assert.True(t, p.Match("dockbeat is running! Hit CTRL-C to stop it."))
	assert.False(t, p.Match("  not at start is running"))
}

func TestServerValidate(t *testing.T) {
	s := NewDefaultConfig().Server
	assert.NoError(t, s.Validate())

	s.Addr = "no-port"
	assert.Error(t, s.Validate())
}

func TestLogValidate(t *testing.T) {
	l := NewDefaultConfig().Log
	l.Path = filepath.Join(t.TempDir(), "nested", "logs")
	require.NoError(t, l.Validate())
	assert.DirExists(t, l.Path)

	opts := l.Options()
	assert.Equal(t, l.Path, opts.Path)
	assert.Equal(t, 30, opts.MaxBackup)

	l.Level = "trace"
	assert.Error(t, l.Validate())
}

func TestRunnerLogGlobMustNotCoverOwnLog(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		workDir string
		glob    string
		logPath string
		wantErr bool
	}{
		{"separate dirs", "", filepath.Join(dir, "agent", "*"), filepath.Join(dir, "logs"), false},
		{"same dir", "", filepath.Join(dir, "logs", "*"), filepath.Join(dir, "logs"), true},
		{"own file pattern", "", filepath.Join(dir, "logs", "agent-runner-*.log"), filepath.Join(dir, "logs"), true},
		{"other file pattern in same dir", "", filepath.Join(dir, "logs", "dockbeat*"), filepath.Join(dir, "logs"), true},
		{"relative to work dir", dir, "logs/*", filepath.Join(dir, "logs"), true},
		{"relative elsewhere", dir, "log/*", filepath.Join(dir, "logs"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRunner()
			r.WorkDir = tt.workDir
			r.LogGlob = tt.glob
			err := r.ValidateLogOverlap(tt.logPath)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "runner.log_glob")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadFileRejectsOverlappingLogs(t *testing.T) {
	logs := filepath.Join(t.TempDir(), "logs")
	body := `
runner:
  binary: sh
  log_glob: ` + filepath.Join(logs, "*") + `
log:
  path: ` + logs + `
`
	_, err := LoadFile(writeYAML(t, body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.path")
}
