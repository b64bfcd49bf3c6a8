// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 reask 命令行入口。

# 概述

cmd/reask 是校验编排引擎的可执行入口，读取一段 LLM 输出（文件或
stdin），按 JSON 规格文件构建带验证器绑定的 schema，并以字面量回放
模式执行一次完整的解析、校验与修复流程。程序支持 YAML 配置文件加载、
结构化日志（zap）、OpenTelemetry 遥测初始化以及运行历史持久化。

# 核心类型

  - schemaSpec   — schema 规格文件的顶层结构（JSON Schema + 绑定列表）
  - bindingSpec  — 单条验证器绑定声明（路径、名称、参数、失败策略）

# 主要能力

  - 子命令：validate（校验一段输出）、version、help
  - 规格文件：通过默认注册表按名称构建验证器，on_fail 映射失败策略
  - 输入来源：--input 指定文件，或 "-" 从 stdin 读取
  - 持久化：配置了 sqlite 数据库时将运行历史写入 history.Store
  - 退出码：0 成功收敛，1 配置或运行错误，2 校验未收敛
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
