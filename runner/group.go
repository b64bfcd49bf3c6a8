package runner

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/reask/history"
)

// Task 一次独立运行：编排器加它的提示词参数
type Task struct {
	Runner *Runner
	Params map[string]any
}

// RunAll 并发执行多个互不相关的运行，结果按任务顺序返回。
// 任何一个运行出致命错误时取消其余运行；结果切片中对应位置
// 仍保留已累积的历史。
func RunAll(ctx context.Context, tasks []Task) ([]*history.History, error) {
	g, ctx := errgroup.WithContext(ctx)
	results := make([]*history.History, len(tasks))

	for i, task := range tasks {
		g.Go(func() error {
			hist, err := task.Runner.Run(ctx, task.Params)
			results[i] = hist
			return err
		})
	}

	return results, g.Wait()
}
