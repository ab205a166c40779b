// Copyright (c) TrackFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 TrackFlow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 track、runid、providers、
sinks 等上层模块提供统一的类型契约。所有跨包共享的结构体、枚举和
错误码均定义于此，以避免循环依赖。

# 核心类型

  - RunConfig         — 一次训练运行的描述（project、name、tags、超参数）
  - Metrics           — 标量指标集合（step 维度由调用方提供）
  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、Retryable、Provider 标记

# 主要能力

  - Context 传播：WithRunID / WithTraceID 等
  - 错误工具链：GetErrorCode / IsRetryable / IsErrorCode
  - 常用错误构造：NewError + WithCause / WithHTTPStatus / WithProvider
*/
package types
