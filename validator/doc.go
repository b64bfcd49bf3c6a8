// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 validator 定义字段级验证器契约、失败处理策略与注册表。

# 核心接口

  - [Validator]：单字段校验器，Validate(ctx, value, metadata) 返回
    [outcome.Result]；契约本身是类型擦除的，具体值类型由字段声明决定
  - [MetadataRequirer]：可选接口，声明验证器必需的运行期元数据键；
    缺失任一必需键属于配置错误（致命，不重试）

# 失败处理策略

[OnFailAction] 决定 schema 层对 FailResult 的反应：

  - [OnFailReask]：嵌入 FieldReAsk 标记，由编排器发起纠正请求
  - [OnFailFix]：静默应用修复值
  - [OnFailFilter]：从所在集合中丢弃该元素
  - [OnFailRefrain]：放弃整个输出
  - [OnFailNoOp]：保留原值，不做纠正
  - [OnFailException]：转为致命错误终止本次运行

策略由 schema 层执行；编排器只对 Reask 与 Exception 的产物作出反应。

# 注册表

[Registry] 将声明名称映射到构造函数，使每个验证器可独立实现、
测试与版本化，避免继承链。

# 内置验证器

本包只携带足以端到端演练契约的少量内置实现
（ValidRange / ValidChoices / ValidLength / RegexMatch / LowerCase / TwoWords）；
完整的验证器库是外部协作方。
*/
package validator
