package store

import (
	"path/filepath"
	"sync"
)

// SchedulerState 定时发布的锚点，重启后据此计算下一次触发
type SchedulerState struct {
	LastRunTs   int64 `json:"last_run_ts"`
	LastDailyTs int64 `json:"last_daily_ts"`
}

// StateFile scheduler_state.json
type StateFile struct {
	mu   sync.Mutex
	path string
}

func NewStateFile(dataDir string) *StateFile {
	return &StateFile{path: filepath.Join(dataDir, SchedulerStateFile)}
}

// Load 文件不存在或损坏时返回零值
func (s *StateFile) Load() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st SchedulerState
	if !readJSON(s.path, &st) {
		return SchedulerState{}
	}
	return st
}

// Save 覆盖写入
func (s *StateFile) Save(st SchedulerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSON(s.path, st)
}
