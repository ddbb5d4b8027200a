//go:build unix

package agent

import (
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agent-runner/pkg/util"
)

const exitScript = `[ -f "$1" ] || exit 9
echo "fake-agent is running! Hit CTRL-C to stop it." >> "$LOG_FILE"
sleep 1
exit 3`

// freeAddr 取一个当前空闲的本地端口
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func httpGet(url string) (int, string) {
	resp, err := http.Get(url)
	if err != nil {
		return 0, ""
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestRunReturnsAgentExitCode(t *testing.T) {
	runnerCfg, agentCfg := writeConfigs(t, exitScript, "")
	out, err := execute(t, "run", "-c", runnerCfg, agentCfg)

	var ee *ExitError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, 3, ee.Code)
	assert.NoError(t, ee.Err)
	assert.Contains(t, out, "agent-runner version "+util.Version)
}

func TestRunServesHealthAndStopsOnSIGTERM(t *testing.T) {
	runnerCfg, agentCfg := writeConfigs(t, readyScript, "")
	addr := freeAddr(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := execute(t, "run", "-c", runnerCfg, agentCfg, "--echo",
			"--server.enable", "--server.addr", addr,
			"--monitor.enable", "--monitor.interval", "50ms")
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		code, body := httpGet("http://" + addr + "/health")
		return code == http.StatusOK && strings.Contains(body, `"healthy":true`)
	}, 5*time.Second, 50*time.Millisecond)
	require.Eventually(t, func() bool {
		_, body := httpGet("http://" + addr + "/metrics")
		return containsAll(body, "agent_process_rss_bytes", "agent_runner_starts_total")
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after SIGTERM")
	}

	// 服务已随 Agent 一起关闭
	code, _ := httpGet("http://" + addr + "/health")
	assert.Equal(t, 0, code)
}

func TestRunInterruptedWhileWaitingStopsAgent(t *testing.T) {
	runnerCfg, agentCfg := writeConfigs(t, pidScript, "")

	errCh := make(chan error, 1)
	go func() {
		_, err := execute(t, "run", "-c", runnerCfg, agentCfg, "--runner.ready_timeout", "20s")
		errCh <- err
	}()

	pid := waitPID(t, agentCfg+".pid")
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case err := <-errCh:
		var ee *ExitError
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, 1, ee.Code)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after SIGTERM")
	}
	assert.ErrorIs(t, syscall.Kill(pid, 0), syscall.ESRCH)
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
