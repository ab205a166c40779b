// Copyright 2026 TrackFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 TrackFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 文件辅助: WriteRunIDRecord / ReadFileString
  - 异步断言: AssertEventuallyTrue，支持超时轮询等待条件满足
  - Mock 实现: mocks.MockTracker（track.Client 的测试替身，
    支持固定标识符、标识符替换与错误注入）
*/
package testutil
