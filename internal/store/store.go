// ABOUTME: Store interface and data types for the chat ledger
// ABOUTME: Defines ChatRecord, MessageRecord, SupportReport and ledger operations

package store

import "time"

// Origin identifies who produced a message.
type Origin string

const (
	OriginUser Origin = "user"
	OriginBot  Origin = "bot"
)

// ChatRecord is the identity of a user that has messaged at least once.
// It is set once on first sighting and never updated afterward: a user's
// later display-name changes are not reflected.
type ChatRecord struct {
	ID          string `json:"from"`
	DisplayName string `json:"name"`
	AvatarURL   string `json:"photo,omitempty"`
}

// MessageRecord is a single ledger entry in a chat's history.
type MessageRecord struct {
	ChatID string `json:"from"`
	Body   string `json:"body"`
	Origin Origin `json:"type"`
}

// SupportReport is a captured support request from the guided conversation.
type SupportReport struct {
	ChatID      string    `json:"chat_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the chat ledger: discovered chat identities, per-chat ordered
// message history, and recorded support reports. Implementations must keep
// per-chat history in insertion order and the chat list in first-sighting
// order.
type Store interface {
	// RegisterChatIfNew records a chat identity on first sighting. Second
	// and later calls for the same chat ID are no-ops that return the
	// existing record and isNew = false.
	RegisterChatIfNew(chatID, displayName, avatarURL string) (ChatRecord, bool)

	// AppendMessage appends to the chat's history, creating it lazily,
	// and returns the stored record.
	AppendMessage(chatID, body string, origin Origin) MessageRecord

	// History returns the chat's ordered message history, or an empty
	// slice if the chat is unknown.
	History(chatID string) []MessageRecord

	// ListChats returns all chat records in first-sighting order.
	ListChats() []ChatRecord

	// SaveReport records a captured support request.
	SaveReport(report SupportReport)

	// ListReports returns all recorded support reports, oldest first.
	ListReports() []SupportReport

	// Close releases any resources held by the store.
	Close() error
}
