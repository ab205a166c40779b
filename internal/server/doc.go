/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动、
优雅关闭与系统信号监听。

rollout 查看器通过 Manager 托管其 HTTP 与 websocket 服务。
Manager 封装 net/http.Server，统一管理监听、服务、关闭与
错误传播流程，内置 SIGINT/SIGTERM 信号处理。监听地址支持
":0" 随机端口，Addr() 返回实际绑定的地址，便于测试与本地
工具使用。
*/
package server
