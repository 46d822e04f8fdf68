// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Keeps chat, message, and report rows with automatic schema creation

package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite. With the
// ":memory:" path it behaves like MemoryStore (volatile); with a file path
// the ledger survives restarts as an operational convenience.
//
// Ledger operations carry no error results, so row-level failures are logged
// and the operation degrades to a no-op. A broken database never takes down
// message processing.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a SQLite-backed ledger at the given path. The
// schema is created automatically; parent directories are created if needed.
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps :memory: databases coherent and serializes
	// writers, matching the ledger's insertion-order invariant.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS chats (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			body TEXT NOT NULL,
			origin TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id);

		CREATE TABLE IF NOT EXISTS reports (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) RegisterChatIfNew(chatID, displayName, avatarURL string) (ChatRecord, bool) {
	res, err := s.db.Exec(
		"INSERT OR IGNORE INTO chats (id, display_name, avatar_url) VALUES (?, ?, ?)",
		chatID, displayName, avatarURL,
	)
	if err != nil {
		s.logger.Error("failed to register chat", "chat_id", chatID, "error", err)
		return ChatRecord{ID: chatID, DisplayName: displayName, AvatarURL: avatarURL}, false
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		s.logger.Error("failed to read insert result", "chat_id", chatID, "error", err)
		inserted = 0
	}
	if inserted > 0 {
		return ChatRecord{ID: chatID, DisplayName: displayName, AvatarURL: avatarURL}, true
	}

	var record ChatRecord
	err = s.db.QueryRow(
		"SELECT id, display_name, avatar_url FROM chats WHERE id = ?", chatID,
	).Scan(&record.ID, &record.DisplayName, &record.AvatarURL)
	if err != nil {
		s.logger.Error("failed to load existing chat", "chat_id", chatID, "error", err)
		return ChatRecord{ID: chatID}, false
	}
	return record, false
}

func (s *SQLiteStore) AppendMessage(chatID, body string, origin Origin) MessageRecord {
	_, err := s.db.Exec(
		"INSERT INTO messages (chat_id, body, origin) VALUES (?, ?, ?)",
		chatID, body, string(origin),
	)
	if err != nil {
		s.logger.Error("failed to append message", "chat_id", chatID, "error", err)
	}
	return MessageRecord{ChatID: chatID, Body: body, Origin: origin}
}

func (s *SQLiteStore) History(chatID string) []MessageRecord {
	rows, err := s.db.Query(
		"SELECT chat_id, body, origin FROM messages WHERE chat_id = ? ORDER BY seq", chatID,
	)
	if err != nil {
		s.logger.Error("failed to query history", "chat_id", chatID, "error", err)
		return []MessageRecord{}
	}
	defer rows.Close()

	out := []MessageRecord{}
	for rows.Next() {
		var rec MessageRecord
		var origin string
		if err := rows.Scan(&rec.ChatID, &rec.Body, &origin); err != nil {
			s.logger.Error("failed to scan message row", "error", err)
			continue
		}
		rec.Origin = Origin(origin)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("history iteration failed", "chat_id", chatID, "error", err)
	}
	return out
}

func (s *SQLiteStore) ListChats() []ChatRecord {
	rows, err := s.db.Query("SELECT id, display_name, avatar_url FROM chats ORDER BY rowid")
	if err != nil {
		s.logger.Error("failed to list chats", "error", err)
		return []ChatRecord{}
	}
	defer rows.Close()

	out := []ChatRecord{}
	for rows.Next() {
		var record ChatRecord
		if err := rows.Scan(&record.ID, &record.DisplayName, &record.AvatarURL); err != nil {
			s.logger.Error("failed to scan chat row", "error", err)
			continue
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("chat iteration failed", "error", err)
	}
	return out
}

func (s *SQLiteStore) SaveReport(report SupportReport) {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		"INSERT INTO reports (chat_id, name, description, created_at) VALUES (?, ?, ?, ?)",
		report.ChatID, report.Name, report.Description, report.CreatedAt,
	)
	if err != nil {
		s.logger.Error("failed to save report", "chat_id", report.ChatID, "error", err)
	}
}

func (s *SQLiteStore) ListReports() []SupportReport {
	rows, err := s.db.Query("SELECT chat_id, name, description, created_at FROM reports ORDER BY seq")
	if err != nil {
		s.logger.Error("failed to list reports", "error", err)
		return []SupportReport{}
	}
	defer rows.Close()

	out := []SupportReport{}
	for rows.Next() {
		var report SupportReport
		if err := rows.Scan(&report.ChatID, &report.Name, &report.Description, &report.CreatedAt); err != nil {
			s.logger.Error("failed to scan report row", "error", err)
			continue
		}
		out = append(out, report)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("report iteration failed", "error", err)
	}
	return out
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
