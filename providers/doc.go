// Package providers 定义追踪服务客户端的共享配置与错误映射。
//
// 各服务的 track.Client 实现位于子包:
//   - wandb:   Weights & Biases,恢复语义为 resume=allow
//   - mlflow:  MLflow Tracking Server REST API
//   - offline: 本地目录,无网络依赖
//
// 所有 HTTP 客户端共用 MapHTTPError 将状态码归一到 types.ErrorCode,
// 其中 5xx 与限流标记为可重试,由调用方决定是否重试。
package providers
