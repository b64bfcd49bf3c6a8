// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 schema 实现编排器消费的 schema 引擎协作方契约。

# 职责

  - 声明输出结构（[JSONSchema]）并把字段绑定到验证器与失败策略
  - [Schema.Parse]：原始响应文本 → 结构化值（解析失败不是错误，
    由调用方包装为 NonParseableReAsk）
  - [Schema.Validate]：按字段遍历，执行每个验证器并按其
    [validator.OnFailAction] 策略产出内嵌 FieldReAsk 标记的结构
  - [Schema.PreprocessPrompt]：把渲染后的输出 schema 注入提示词
  - [Schema.ReaskSetup]：用上一轮的标记构造纠正请求
    （新提示词、指令与窄化后的 schema）
  - [Schema.MissingMetadataKeys]：运行前的必需元数据键检查

# 路径约定

字段绑定路径用 "." 连接对象键，数组元素统一记作 "*"，
例如 "people.*.age"。校验遍历与 schema 窄化共享这一约定。
*/
package schema
