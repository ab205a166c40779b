// Package sinks 提供训练指标的输出端实现。
//
// Sink 是统一的指标写入接口,每个实现负责一种目的地:
//   - ConsoleSink: 结构化日志输出,便于本地开发观察
//   - JSONLSink: 追加写入 JSON Lines 文件,离线分析友好
//   - SessionSink: 转发到已绑定的追踪服务会话
//   - MultiSink: 扇出到多个 sink,单个失败不影响其他
//
// 所有 sink 对同一 step 的重复写入遵循各自目的地的语义,
// 调用方负责 step 的单调性。
package sinks
