// Package rollout 提供 RL 训练过程中 rollout 的采样保存。
//
// 每个批次写满后推进步数,每 SaveEvery 个批次从该批次中挑选
// best/worst/random 三条(单条批次标记 only)追加到 rollouts.jsonl。
// NaN 奖励排序到末尾且不参与 best 选取,出现时记录警告。
//
// token 统计基于 tiktoken 编码表,对话逐条消息分别统计正文与推理内容。
package rollout
