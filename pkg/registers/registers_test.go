package registers

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agent-runner/pkg/config"
)

func TestStartSamplerDisabled(t *testing.T) {
	_, factory := InitPromRegistry(false)
	agent, err := StartSampler(context.Background(), &config.MonitorConfig{Enable: false, Interval: time.Second}, factory, os.Getpid())
	require.NoError(t, err)
	assert.Nil(t, agent)
}

func TestStartSamplerCollectsOwnProcess(t *testing.T) {
	reg, factory := InitPromRegistry(true)
	agent, err := StartSampler(context.Background(), &config.MonitorConfig{Enable: true, Interval: 50 * time.Millisecond}, factory, os.Getpid())
	require.NoError(t, err)
	require.NotNil(t, agent)

	require.Eventually(t, func() bool {
		n, err := testutil.GatherAndCount(reg, "agent_process_rss_bytes")
		return err == nil && n == 1
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, agent.Shutdown(ctx))

	n, err := testutil.GatherAndCount(reg, "agent_process_rss_bytes")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
