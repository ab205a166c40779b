// Copyright (c) TrackFlow Authors.
// Licensed under the MIT License.

/*
Package track 实现运行身份绑定协议：进程启动时在「新建运行」与
「恢复既有运行」之间做出决策，并在绑定成功后将服务端分配的标识符
写回 runid 存储。

# 概述

训练进程因 checkpoint 恢复而重启时，若不保留运行标识，跟踪服务端
会为每次重启新建一条互不关联的记录。Binder 以 runid.Store 为唯一
事实来源，保证同一工作目录下的逻辑训练运行在服务端保持同一身份。

# 协议

  1. 查询工作目录下的既有标识符（缺失是正常情况，不是错误）
  2. 缺失 → OpenNew；存在 → 以恢复意图 OpenExisting
  3. 任一打开调用失败 → TRACKING_UNAVAILABLE，不在内部重试
  4. 成功后以服务端返回的标识符幂等写回存储；写回失败仅告警，
     会话仍然可用（降级状态：下次重启无法恢复）

# 核心类型

  - Client      — 跟踪服务的窄接口（OpenNew / OpenExisting）
  - Session     — 打开后的指标上报句柄
  - Binder      — 协议编排者
  - Persistence — 显式的持久化开关（NoPersistence / PersistAt）
*/
package track
