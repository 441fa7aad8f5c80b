package session

func (m *MemoryRevocationSet) size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
