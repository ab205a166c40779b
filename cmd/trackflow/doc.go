// Copyright (c) TrackFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 TrackFlow 命令行程序入口。

# 概述

cmd/trackflow 是 TrackFlow 的可执行入口，围绕工作目录的运行标识符记录
提供绑定、查询与维护子命令。程序支持 YAML 配置文件加载、环境变量覆盖、
结构化日志（zap）以及可选的 OpenTelemetry 上报。

# 主要能力

  - 子命令：bind（创建或恢复运行）、status（查看标识符记录）、
    reset（删除标识符记录）、history（查询绑定历史）、
    view（rollout 查看器）、version
  - bind 走完整绑定协议：读取记录 → 打开/恢复运行 → 回写服务端标识符
  - history 读取本地 sqlite journal，支持按目录过滤
  - view 启动 HTTP + websocket 服务，文件变化时推送 reload 事件
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
