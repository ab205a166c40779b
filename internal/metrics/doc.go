// 版权所有 2026 TrackFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集能力，覆盖
Bind、Provider、Sink 与 Rollout 四大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组，便于 Grafana 等工具进行可视化与告警。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram 等
    Prometheus 向量指标，按业务域分组管理。

# 主要能力

  - Bind 指标：绑定总数（按 provider/outcome）、绑定耗时、
    run id 保存失败数、恢复告警数。
  - Provider 指标：请求总数、请求耗时，按 provider/operation 分组。
  - Sink 指标：写入的指标点数与写入失败数，按 sink 分组。
  - Rollout 指标：保存的 rollout 数，按 selection 分组。
*/
package metrics
