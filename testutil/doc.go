// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 Reask 引擎测试的共享工具。

# 子包

  - testutil/mocks: Mock 实现，目前包括 MockCallable（模型调用目标），
    支持 Builder 模式、脚本化逐轮响应与错误注入

# 使用示例

	callable := mocks.NewMockCallable().
		WithOutputs(`{"age": 15}`, `{"age": 7}`)
	hist, err := r.Run(ctx, nil)
*/
package testutil
