// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 定义模型客户端协作方契约与常用包装器。

# 契约

  - [Callable]：编排器消费的不透明调用目标，
    Call(ctx, req) 返回文本输出与可选的 token 计数
  - [CallRequest]：渲染完成的请求（提示词 / 指令 / 消息历史），
    BaseSchema 为可选的结构化输出提示（structured-output hint）；
    后端不支持该提示时抛错，由编排器在同一迭代内降级重试一次
  - [Response]：原始文本输出与 prompt/response token 计数

# 适配与包装

  - [ProviderCallable]：把聊天式 [ChatProvider] 适配为 Callable，
    BaseSchema 以系统消息形式注入
  - [CachedCallable]：Redis 响应缓存（请求哈希为键）
  - [RateLimitedCallable]：令牌桶限流
  - [TokenCounter]：tiktoken 计数，初始化失败时退化为启发式估算

超时与传输可靠性是 Callable 实现的属性；编排器只负责同一迭代内
去掉结构化输出提示的一次降级重试。
*/
package llm
