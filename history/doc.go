// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 history 记录一次编排运行的完整审计轨迹。

# 模型

  - [Attempt]：一次模型往返的记录。每个字段在其所属流水线阶段完成后
    立即写入一次，之后不再变更；记录由包含它的 History 独占
  - [History]：一次运行内按时间序追加的 Attempt 序列，
    运行开始时由编排器整体重建（清空语义）
  - [State]：跨多次运行的 History 栈，便于上层回看最近若干次运行

# 持久化

[Store] 把完成的 History 以 JSON 形态落库（gorm），
作为可选的事后审计存储，不参与编排决策。
*/
package history
