package conversation

import (
	"context"
	"sync"
)

const defaultMaxTurns = 50

// MemoryStore 在进程内保存会话，每个会话最多保留 maxTurns 条消息。
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Turn
	maxTurns int
}

// NewMemoryStore 创建内存会话存储。
func NewMemoryStore(maxTurns int) *MemoryStore {
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	return &MemoryStore{sessions: make(map[string][]Turn), maxTurns: maxTurns}
}

// Append 追加消息并裁剪到上限。
func (m *MemoryStore) Append(_ context.Context, sessionID string, turns ...Turn) error {
	if err := requireSession(sessionID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	list := append(m.sessions[sessionID], turns...)
	if len(list) > m.maxTurns {
		list = append([]Turn(nil), list[len(list)-m.maxTurns:]...)
	}
	m.sessions[sessionID] = list
	return nil
}

// Recent 返回最近 limit 条消息，limit 非正数时返回全部。
func (m *MemoryStore) Recent(_ context.Context, sessionID string, limit int) ([]Turn, error) {
	if err := requireSession(sessionID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.sessions[sessionID]
	if limit > 0 && len(list) > limit {
		list = list[len(list)-limit:]
	}
	out := make([]Turn, len(list))
	copy(out, list)
	return out, nil
}

// Clear 删除会话。
func (m *MemoryStore) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}
