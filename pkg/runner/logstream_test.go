package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendFile(t *testing.T, path, data string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestLogStreamReadsOnlyNewLines(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "beat.log")
	s, err := NewLogStream(filepath.Join(dir, "*"))
	require.NoError(t, err)

	lines, err := s.ReadLines()
	require.NoError(t, err)
	assert.Empty(t, lines)

	appendFile(t, p, "one\ntwo\r\n")
	lines, err = s.ReadLines()
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)
	assert.Equal(t, int64(9), s.Offset(p))

	lines, err = s.ReadLines()
	require.NoError(t, err)
	assert.Empty(t, lines)

	appendFile(t, p, "three\n")
	lines, err = s.ReadLines()
	require.NoError(t, err)
	assert.Equal(t, []string{"three"}, lines)
}

func TestLogStreamPartialLine(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "beat.log")
	s, err := NewLogStream(p)
	require.NoError(t, err)

	appendFile(t, p, "dockbeat is run")
	lines, err := s.ReadLines()
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Equal(t, []string{"dockbeat is run"}, s.Pending())

	appendFile(t, p, "ning!\nnext")
	lines, err = s.ReadLines()
	require.NoError(t, err)
	assert.Equal(t, []string{"dockbeat is running!"}, lines)
	assert.Equal(t, []string{"next"}, s.Pending())
}

func TestLogStreamSkipExisting(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "beat.log")
	appendFile(t, p, "old line\nold partial")

	s, err := NewLogStream(filepath.Join(dir, "*.log"))
	require.NoError(t, err)
	require.NoError(t, s.SkipExisting())
	assert.Empty(t, s.Pending())

	appendFile(t, p, "\nfresh\n")
	lines, err := s.ReadLines()
	require.NoError(t, err)
	assert.Equal(t, []string{"", "fresh"}, lines)
}

func TestLogStreamTruncateAndRotation(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "beat")
	s, err := NewLogStream(filepath.Join(dir, "beat*"))
	require.NoError(t, err)

	appendFile(t, p, "first run line\n")
	_, err = s.ReadLines()
	require.NoError(t, err)

	// 截断后偏移归零
	require.NoError(t, os.WriteFile(p, []byte("after\n"), 0o644))
	lines, err := s.ReadLines()
	require.NoError(t, err)
	assert.Equal(t, []string{"after"}, lines)

	// 轮转出的新文件在下一次读取时纳入
	appendFile(t, p+".1", "rotated\n")
	lines, err = s.ReadLines()
	require.NoError(t, err)
	assert.Equal(t, []string{"rotated"}, lines)
}

func TestLogStreamIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	appendFile(t, filepath.Join(dir, "a.log"), "a\n")

	s, err := NewLogStream(filepath.Join(dir, "*"))
	require.NoError(t, err)
	lines, err := s.ReadLines()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, lines)
}

func TestNewLogStreamInvalid(t *testing.T) {
	_, err := NewLogStream("")
	require.Error(t, err)
	_, err = NewLogStream("log/[")
	require.Error(t, err)
}

func TestLogStreamFollow(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "beat.log")
	s, err := NewLogStream(p)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go func() {
		appendFile(t, p, "a\n")
		time.Sleep(50 * time.Millisecond)
		appendFile(t, p, "b\n")
	}()

	var got []string
	for line, err := range s.Follow(ctx, 10*time.Millisecond) {
		require.NoError(t, err)
		got = append(got, line)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestScanLeavesLinesAfterMatch(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "beat.log")
	s, err := NewLogStream(p)
	require.NoError(t, err)

	appendFile(t, p, "starting\ndockbeat is running!\nfirst event\nsecond event\n")
	matched, line, err := scan(s, Contains("is running"))
	require.NoError(t, err)
	require.True(t, matched)
	assert.Equal(t, "dockbeat is running!", line)

	appendFile(t, p, "third event\n")
	lines, err := s.ReadLines()
	require.NoError(t, err)
	assert.Equal(t, []string{"first event", "second event", "third event"}, lines)
}

func TestFollowKeepsLinesWhenConsumerStops(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "beat.log")
	s, err := NewLogStream(p)
	require.NoError(t, err)
	appendFile(t, p, "a\nb\nc\n")

	for line, err := range s.Follow(context.Background(), 10*time.Millisecond) {
		require.NoError(t, err)
		assert.Equal(t, "a", line)
		break
	}
	lines, err := s.ReadLines()
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, lines)
}
