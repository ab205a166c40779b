// Package history 提供绑定历史的本地持久化。
//
// 每次成功绑定写入一条 BindEvent 到 sqlite,记录工作目录、
// 提供方、运行标识符与绑定结果,CLI 据此回答"这个目录之前
// 绑定过哪些运行"。journal 写入失败不影响绑定流程。
package history
