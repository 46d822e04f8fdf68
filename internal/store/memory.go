// ABOUTME: In-memory Store implementation backed by maps and slices
// ABOUTME: The default ledger; all state is volatile per the process lifetime

package store

import "sync"

// MemoryStore implements Store with in-memory maps. It is the default
// ledger. Growth is unbounded for the process lifetime; that is an accepted
// operational tradeoff, not a bug.
type MemoryStore struct {
	mu        sync.RWMutex
	chats     map[string]ChatRecord
	chatOrder []string
	history   map[string][]MessageRecord
	reports   []SupportReport
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats:   make(map[string]ChatRecord),
		history: make(map[string][]MessageRecord),
	}
}

func (s *MemoryStore) RegisterChatIfNew(chatID, displayName, avatarURL string) (ChatRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.chats[chatID]; ok {
		return existing, false
	}

	record := ChatRecord{ID: chatID, DisplayName: displayName, AvatarURL: avatarURL}
	s.chats[chatID] = record
	s.chatOrder = append(s.chatOrder, chatID)
	return record, true
}

func (s *MemoryStore) AppendMessage(chatID, body string, origin Origin) MessageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	record := MessageRecord{ChatID: chatID, Body: body, Origin: origin}
	s.history[chatID] = append(s.history[chatID], record)
	return record
}

func (s *MemoryStore) History(chatID string) []MessageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.history[chatID]
	out := make([]MessageRecord, len(h))
	copy(out, h)
	return out
}

func (s *MemoryStore) ListChats() []ChatRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ChatRecord, 0, len(s.chatOrder))
	for _, id := range s.chatOrder {
		out = append(out, s.chats[id])
	}
	return out
}

func (s *MemoryStore) SaveReport(report SupportReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
}

func (s *MemoryStore) ListReports() []SupportReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SupportReport, len(s.reports))
	copy(out, s.reports)
	return out
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
