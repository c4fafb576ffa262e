// Copyright 2026 OEF-Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 OEF-Go 测试的共享工具和辅助函数。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 异步断言: AssertEventuallyTrue / AssertEventuallyEqual，
    支持超时轮询等待条件满足
  - 等待工具: WaitFor / WaitForChannel

# 子包

  - testutil/mocks: RecordingHandler，记录分发回调并支持错误注入
  - testutil/fixtures: 测试数据工厂，提供天气站与 foo/bar 数据模型、
    描述与查询样例
  - testutil/fakenode: 基于 TCP 的 OEF 节点测试对端，实现握手并通过
    node.LocalNode 转发消息

# 使用示例

	ctx := testutil.TestContext(t)
	fn := fakenode.Start(t, logger)
	p := proxy.NewNetworkProxy("alice", fn.NodeConfig())
	ok, err := p.Connect(ctx)
*/
package testutil
