package runner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/agent-runner/pkg/logger"
)

// fileWakeup 监听日志目录的写入/创建事件，用于提前唤醒轮询循环。
// 轮询间隔仍然是检测延迟的上限，事件只是加速。
type fileWakeup struct {
	watcher *fsnotify.Watcher
	C       <-chan struct{}
}

// watchLogDir 目录不存在或目录部分带 glob 通配符时返回 nil（只靠轮询）
func watchLogDir(pattern string) *fileWakeup {
	pattern = filepath.Clean(pattern)
	dir := filepath.Dir(pattern)
	if strings.ContainsAny(dir, "*?[") {
		return nil
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Debug("fsnotify unavailable, polling only", zap.Error(err))
		return nil
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		logger.Debug("watch log dir failed, polling only", zap.String("dir", dir), zap.Error(err))
		return nil
	}

	ch := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				if match, _ := filepath.Match(pattern, ev.Name); !match {
					continue
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return &fileWakeup{watcher: w, C: ch}
}

func (f *fileWakeup) events() <-chan struct{} {
	if f == nil {
		return nil
	}
	return f.C
}

func (f *fileWakeup) Close() error {
	if f == nil {
		return nil
	}
	return f.watcher.Close()
}
