package dispatch

import (
	"context"
	"log/slog"
	"sync"

	xerrors "AutoFlow-Agent/internal/errors"
	"AutoFlow-Agent/pkg/logger"
)

// MemoryQueue 使用 channel 承载运行请求，单进程部署时的默认实现。
type MemoryQueue struct {
	ch     chan string
	done   chan struct{}
	mu     sync.Mutex
	closed bool
}

// NewMemoryQueue 创建内存队列，size 为缓冲长度。
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{ch: make(chan string, size), done: make(chan struct{})}
}

// Publish 投递一个运行请求，缓冲区满时阻塞直到上下文取消或队列关闭。
func (q *MemoryQueue) Publish(ctx context.Context, workflowID string) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return errQueueClosed()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return errQueueClosed()
	case q.ch <- workflowID:
		return nil
	}
}

// Consume 启动 workerCount 个协程消费，直到上下文取消或队列关闭。
// 可重试的失败放回队尾；缓冲区已满时丢弃并记录日志。
func (q *MemoryQueue) Consume(ctx context.Context, workerCount int, handler Handler) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-q.done:
					return
				case id := <-q.ch:
					q.handle(ctx, handler, id)
				}
			}
		}()
	}
	select {
	case <-ctx.Done():
	case <-q.done:
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	return errQueueClosed()
}

func (q *MemoryQueue) handle(ctx context.Context, handler Handler, id string) {
	err := handler(ctx, id)
	if err == nil {
		return
	}
	if !xerrors.RetryableError(err) {
		logger.L().Warn("运行请求处理失败", slog.String("workflow_id", id), slog.Any("error", err))
		return
	}
	select {
	case q.ch <- id:
		logger.L().Debug("运行请求已重新入队", slog.String("workflow_id", id))
	default:
		logger.L().Error("队列已满，放弃重试", slog.String("workflow_id", id), slog.Any("error", err))
	}
}

// Len 返回尚未消费的请求数量。
func (q *MemoryQueue) Len() int {
	return len(q.ch)
}

// Close 关闭队列，阻塞中的 Publish 立即返回，之后的 Publish 返回错误。
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		close(q.done)
		q.closed = true
	}
	return nil
}

func errQueueClosed() error {
	return xerrors.New(xerrors.CodeQueueFailure, "队列已关闭")
}
