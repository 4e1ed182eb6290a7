package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// 数据目录下的文件名
const (
	PendingDeletesFile = "pending_deletes.json"
	RecentTidsFile     = "recent_tids.json"
	RecentPostsFile    = "recent_posts.json"
	SchedulerStateFile = "scheduler_state.json"
	LikedRecordsFile   = "liked_records.json"
)

// readJSON 读取 JSON 文件到 v。文件不存在或内容损坏都当作空，返回 false。
func readJSON(path string, v any) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logrus.Warnf("读取 %s 失败: %v", path, err)
		}
		return false
	}
	if len(raw) == 0 {
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		logrus.Warnf("解析 %s 失败，按空处理: %v", path, err)
		return false
	}
	return true
}

// writeJSON 整个文件重写
func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "创建数据目录失败")
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "序列化失败")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "写入 %s 失败", path)
	}
	return nil
}
