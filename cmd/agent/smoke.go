package agent

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agent-runner/pkg/logger"
	"github.com/agent-runner/pkg/signal"
)

func newSmokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "smoke <agent-config>",
		Short: "Start the agent, wait for readiness, stop it and check the exit code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmoke(cmd, args[0])
		},
	}
}

// runSmoke start -> ready -> stop -> 校验退出码
func runSmoke(cmd *cobra.Command, agentConfig string) error {
	s, err := newSession(cmd, "smoke")
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(cmd.Context())
	defer cancel()

	begin := time.Now()
	h, err := s.startReady(ctx, agentConfig)
	if err != nil {
		return err
	}
	code, err := s.runner.Stop(h)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	want := s.cfg.Runner.ExpectExitCode
	if code != want {
		return &ExitError{Code: 1, Err: fmt.Errorf("smoke failed: agent exited with code %d, expected %d", code, want)}
	}
	logger.Info("smoke passed",
		zap.String("handle", h.ID()),
		zap.Int("exit_code", code),
		zap.Duration("elapsed", time.Since(begin)))
	fmt.Fprintf(cmd.OutOrStdout(), "PASS exit_code=%d\n", code)
	return nil
}
