// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 outcome 定义校验结果与 ReAsk 标记的值类型及其遍历工具。

# 概述

outcome 是整个引擎的最底层包：它不依赖任何其他包，只提供不可变的
值类型与纯函数遍历。校验失败在这里被表示为"值"而非"错误"，
这样部分成功的输出结构可以原样保留、审计与再修复。

# 核心类型

  - [Result]：单次验证器调用的结果联合（[PassResult] / [FailResult] 二选一）
  - [ReAsk]：嵌入输出结构中的未解决标记接口
  - [FieldReAsk]：某个字段校验失败的标记，携带路径、错误值与失败结果列表
  - [NonParseableReAsk]：整个原始响应无法解析时的根级标记
  - [Unresolved]：预算耗尽后无法给出合法输出时的最终占位值

# 遍历工具

  - [Gather]：深度优先收集结构中的全部 ReAsk 标记（字段名排序，结果确定）
  - [SubFixedValues]：用修复值替换全部标记，保证输出不含引擎内部类型
  - [PruneForReask]：裁剪出仅包含标记及其祖先的子结构，用于构造纠正请求

# 不变式

  - Result 恰好是 Pass 或 Fail 之一；MetadataUpdates 以合并方式生效
  - FieldReAsk 只出现在结构内部，NonParseableReAsk 只出现在根
  - Gather(SubFixedValues(v)) 恒为空；SubFixedValues 幂等
*/
package outcome
