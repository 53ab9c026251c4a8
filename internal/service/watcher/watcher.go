// Package watcher 提供收件目录监听服务
// 落入目录的文档自动摄取进知识库
package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ashwinyue/docchat/internal/model"
	"github.com/ashwinyue/docchat/internal/service/knowledge"
)

// debounceDelay 同一文件事件的合并窗口, 等待写入完成后再摄取
const debounceDelay = 500 * time.Millisecond

// Ingester 文档摄取能力
type Ingester interface {
	Ingest(ctx context.Context, filePath string) (*model.Document, error)
}

var _ Ingester = (*knowledge.Service)(nil)

// Watcher 收件目录监听器
type Watcher struct {
	dir      string
	ingester Ingester
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New 创建监听器
func New(dir string, ingester Ingester) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		dir:      dir,
		ingester: ingester,
		watcher:  fw,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Start 开始监听, 阻塞直到 ctx 取消或监听器关闭
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	log.Printf("Watching inbox directory %s", w.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Warning: inbox watcher error: %v", err)
		}
	}
}

// Close 停止监听并取消未触发的摄取
func (w *Watcher) Close() error {
	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

// handleEvent 过滤文件事件, 只响应受支持文档的新建与写入
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !knowledge.SupportedFile(event.Name) {
		return
	}
	w.schedule(ctx, event.Name)
}

// schedule 重置文件的去抖定时器, 静默期满后摄取
// 编辑器和下载器通常以多次写入落盘, 合并为一次摄取
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(debounceDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if _, err := w.ingester.Ingest(ctx, path); err != nil {
			log.Printf("Warning: failed to ingest %s: %v", filepath.Base(path), err)
		}
	})
}

// PendingCount 当前等待去抖的文件数
func (w *Watcher) PendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
