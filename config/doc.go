// Package config 提供 TrackFlow 的统一配置加载。
// 优先级: 默认值 → YAML 文件 → TRACKFLOW_* 环境变量。
package config
