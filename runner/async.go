package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/reask/history"
)

// runCounter provides a monotonically increasing counter for unique run IDs.
var runCounter uint64

// runResult bundles the outcome of an async run into a single value,
// eliminating the dual-channel select race between result and error channels.
type runResult struct {
	History *history.History
	Err     error
}

// Status 异步执行状态
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Execution 异步执行句柄。
// Start 返回后立即可用；状态查询不阻塞，Wait 阻塞取结果。
type Execution struct {
	ID        string
	StartTime time.Time

	// mu protects mutable fields: status, errMsg, history, endTime.
	mu      sync.RWMutex
	status  Status
	errMsg  string
	history *history.History
	endTime time.Time

	doneCh chan runResult
}

// Start 派生 goroutine 执行一次完整编排并立即返回句柄。
// 轮次之间严格串行；取消只在阶段边界生效，已累积的历史保持有效。
func (r *Runner) Start(ctx context.Context, params map[string]any) *Execution {
	exec := &Execution{
		ID:        generateRunID(),
		StartTime: time.Now(),
		status:    StatusRunning,
		doneCh:    make(chan runResult, 1),
	}

	r.logger.Info("starting async run",
		zap.String("run_id", exec.ID),
	)

	go func() {
		hist, err := r.Run(ctx, params)
		switch {
		case err != nil && errors.Is(err, context.Canceled):
			exec.setCancelled(hist, err)
		case err != nil:
			exec.setFailed(hist, err)
		default:
			exec.setCompleted(hist)
		}
		exec.doneCh <- runResult{History: hist, Err: err}
	}()

	return exec
}

// Wait 等待执行完成
func (e *Execution) Wait(ctx context.Context) (*history.History, error) {
	select {
	case res := <-e.doneCh:
		return res.History, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// setCompleted atomically marks the execution as completed.
func (e *Execution) setCompleted(hist *history.History) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = StatusCompleted
	e.history = hist
	e.endTime = time.Now()
}

// setFailed atomically marks the execution as failed.
func (e *Execution) setFailed(hist *history.History, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = StatusFailed
	e.errMsg = err.Error()
	e.history = hist
	e.endTime = time.Now()
}

// setCancelled atomically marks the execution as cancelled.
func (e *Execution) setCancelled(hist *history.History, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = StatusCancelled
	e.errMsg = err.Error()
	e.history = hist
	e.endTime = time.Now()
}

// GetStatus returns the current execution status.
func (e *Execution) GetStatus() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// GetError returns the error message, if any.
func (e *Execution) GetError() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.errMsg
}

// GetHistory returns the accumulated history, if finished.
func (e *Execution) GetHistory() *history.History {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history
}

// GetEndTime returns when the execution finished.
func (e *Execution) GetEndTime() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.endTime
}

// generateRunID creates a unique run ID.
// Uses an atomic counter combined with timestamp to prevent collisions under concurrency.
func generateRunID() string {
	id := atomic.AddUint64(&runCounter, 1)
	return fmt.Sprintf("run_%d_%d", time.Now().UnixNano(), id)
}
