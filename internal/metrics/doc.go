// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的编排运行指标采集能力，覆盖
运行、重问标记、LLM 调用与流水线阶段四大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组，便于 Grafana 等工具进行可视化与告警。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram 等
    Prometheus 向量指标，按业务域分组管理。nil Collector
    上的记录方法均为空操作，调用方无需判空。

# 主要能力

  - 运行指标：运行总数、运行耗时、每次运行消耗的尝试数，
    按 status（resolved/unresolved/error）分组。
  - 标记指标：产出的重问标记计数，按 kind（field/non_parseable）分组。
  - LLM 指标：调用总数与 Token 用量（prompt/response），
    按 hinted/status 分组。
  - 阶段指标：prepare/call/parse/validate/introspect 各阶段耗时。
*/
package metrics
