// Package viewer 提供 rollouts.jsonl 的本地查看服务。
//
// 通过 HTTP API 暴露文件内容:
//
//	GET /api/rollouts          全部 rollout 列表
//	GET /api/rollouts/{index}  单条 rollout
//	GET /ws                    websocket,文件变化时推送 reload 事件
//
// 读取端对写入方宽容:空行与残缺行跳过,文件缺失视为空。
// 文件变化通过轮询 mtime/size 发现并经去抖后广播。
package viewer
