// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 runner 实现有界重试编排器：驱动模型在重问预算内逼近
符合输出 schema 的合法结果。

# 概述

一次运行由至多 预算+1 轮尝试组成。每轮尝试走固定流水线：
Prepare → Call → Parse → Validate → Introspect → Finalize，
每个阶段完成后立即写入本轮的 Attempt 记录。只要 Introspect
发现残留标记且预算未耗尽，编排器就用失败字段构造纠正请求
进入下一轮；纠正轮总是清空消息历史，并在原始请求既无指令
也无消息历史时丢弃指令。

# 核心类型

  - Runner：编排器本体，持有输出 schema、调用目标、元数据
    与重问预算，Run 返回完整的运行历史。
  - Execution：异步执行句柄，Start 派生 goroutine 后立即返回，
    Wait 阻塞取结果，状态查询不阻塞。

# 主要能力

  - 元数据前置检查：校验器声明的元数据键缺失时立刻返回
    配置错误，模型调用不会发生。
  - 降级重试：携带结构化输出提示的调用失败时，同一轮内
    去掉提示再试一次；第二次失败按致命错误向上传播。
  - 字面量回放：提供字面输出时跳过模型调用，直接走
    Parse/Validate 流水线。
  - 尽力收尾：预算耗尽仍有失败时，用修复值替换残留标记，
    产出尽力而为的最终结构。

# 使用示例

	r, err := runner.New(s, callable,
		runner.WithNumReasks(2),
		runner.WithPrompt("Extract a person from: {text}"),
	)
	if err != nil {
		return err
	}
	hist, err := r.Run(ctx, map[string]any{"text": doc})
	if err != nil {
		return err
	}
	if hist.Resolved() {
		use(hist.FinalOutput())
	}
*/
package runner
