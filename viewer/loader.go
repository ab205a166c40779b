package viewer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"

	"go.uber.org/zap"

	"github.com/BaSui01/trackflow/rollout"
)

// Entry 是查看器中的一条 rollout,Index 为其在文件中的序号
type Entry struct {
	Index int `json:"index"`
	rollout.Record
}

// maxLineBytes 单条 rollout 记录的大小上限
const maxLineBytes = 16 << 20

// Load 读取 rollouts JSONL 文件的全部记录。
// 文件不存在返回空列表;空行与残缺行跳过——保存方可能正在写入,
// 尾部出现半行是正常情况。
func Load(logger *zap.Logger, path string) ([]Entry, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		var record rollout.Record
		if err := json.Unmarshal(data, &record); err != nil {
			logger.Debug("skipping malformed rollout line",
				zap.String("path", path),
				zap.Int("line", line),
			)
			continue
		}
		entries = append(entries, Entry{Index: len(entries), Record: record})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
