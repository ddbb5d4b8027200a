package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// LogStream 以 glob 匹配的一组只追加文本文件，按文件记录已读偏移
//
// 只返回新追加的内容；文件变短（截断/轮转）时偏移归零；
// 之后才出现的文件在下一次读取时自动纳入。
// 非并发安全，由持有它的 ProcessHandle 独占使用。
type LogStream struct {
	pattern string
	offsets map[string]int64
	partial map[string][]byte
	unread  []string // 已从文件读出、尚未交给调用方的完整行
}

// NewLogStream 创建日志流，pattern 可以是普通路径（即只匹配自身的 glob）
func NewLogStream(pattern string) (*LogStream, error) {
	if pattern == "" {
		return nil, fmt.Errorf("log pattern is empty")
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("log pattern %q: %w", pattern, err)
	}
	return &LogStream{
		pattern: pattern,
		offsets: make(map[string]int64),
		partial: make(map[string][]byte),
	}, nil
}

// Pattern 返回 glob
func (s *LogStream) Pattern() string { return s.pattern }

// Offset 返回某个文件的已读偏移
func (s *LogStream) Offset(path string) int64 { return s.offsets[path] }

// SkipExisting 把偏移移动到当前文件末尾，忽略启动前已存在的内容
func (s *LogStream) SkipExisting() error {
	files, err := s.files()
	if err != nil {
		return err
	}
	for _, f := range files {
		s.offsets[f.path] = f.size
		delete(s.partial, f.path)
	}
	s.unread = nil
	return nil
}

// ReadLines 读取自上次以来追加的完整行（不含换行符），先返回 Unread 退回的行
func (s *LogStream) ReadLines() ([]string, error) {
	lines := s.unread
	s.unread = nil
	files, err := s.files()
	if err != nil {
		return lines, err
	}
	for _, f := range files {
		got, err := s.readFile(f)
		if err != nil {
			return lines, err
		}
		lines = append(lines, got...)
	}
	return lines, nil
}

// Unread 把尚未处理的行退回流中，下一次 ReadLines 最先返回它们
func (s *LogStream) Unread(lines []string) {
	if len(lines) == 0 {
		return
	}
	s.unread = append(append([]string(nil), lines...), s.unread...)
}

// Pending 返回各文件尚未以换行结束的尾部内容
func (s *LogStream) Pending() []string {
	paths := make([]string, 0, len(s.partial))
	for p, buf := range s.partial {
		if len(buf) > 0 {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, string(s.partial[p]))
	}
	return out
}

// Follow 返回一个惰性、可能无限的新增行序列，直到 ctx 结束或读出错
func (s *LogStream) Follow(ctx context.Context, interval time.Duration) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			lines, err := s.ReadLines()
			for i, l := range lines {
				if !yield(l, nil) {
					// 消费方提前结束，剩余行留给下一次读取
					s.Unread(lines[i+1:])
					return
				}
			}
			if err != nil {
				yield("", err)
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}

type logFile struct {
	path string
	size int64
}

func (s *LogStream) files() ([]logFile, error) {
	matches, err := filepath.Glob(s.pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", s.pattern, err)
	}
	sort.Strings(matches)
	files := make([]logFile, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			// 文件在 glob 和 stat 之间被轮转删除
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, logFile{path: m, size: info.Size()})
	}
	return files, nil
}

func (s *LogStream) readFile(f logFile) ([]string, error) {
	off := s.offsets[f.path]
	if f.size < off {
		off = 0
		delete(s.partial, f.path)
	}
	if f.size == off {
		s.offsets[f.path] = off
		return nil, nil
	}

	fh, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log %s: %w", f.path, err)
	}
	defer fh.Close()

	if _, err := fh.Seek(off, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek log %s: %w", f.path, err)
	}
	chunk, err := io.ReadAll(io.LimitReader(fh, f.size-off))
	if err != nil {
		return nil, fmt.Errorf("read log %s: %w", f.path, err)
	}
	s.offsets[f.path] = off + int64(len(chunk))

	buf := append(s.partial[f.path], chunk...)
	var lines []string
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		lines = append(lines, string(bytes.TrimSuffix(buf[:i], []byte{'\r'})))
		buf = buf[i+1:]
	}
	if len(buf) > 0 {
		s.partial[f.path] = append([]byte(nil), buf...)
	} else {
		delete(s.partial, f.path)
	}
	return lines, nil
}
