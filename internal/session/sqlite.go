package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/paperchat/internal/sections"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists sessions, documents and transcripts in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	// Connection pragmas go in the DSN so every pooled connection gets them.
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Create(ctx context.Context) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)",
		sess.ID, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	sess := &Session{ID: id}
	err := s.db.QueryRowContext(ctx,
		"SELECT created_at, updated_at FROM sessions WHERE id = ?", id,
	).Scan(&sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Document = doc

	msgs, err := s.getMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Messages = msgs
	return sess, nil
}

func (s *SQLiteStore) getDocument(ctx context.Context, id string) (*Document, error) {
	var (
		doc          Document
		sectionsJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT doc_id, filename, full_text, sections, content_hash, uploaded_at
		FROM documents WHERE session_id = ?`, id,
	).Scan(&doc.ID, &doc.Filename, &doc.FullText, &sectionsJSON, &doc.ContentHash, &doc.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if err := json.Unmarshal([]byte(sectionsJSON), &doc.Sections); err != nil {
		return nil, fmt.Errorf("decode sections: %w", err)
	}
	return &doc, nil
}

func (s *SQLiteStore) getMessages(ctx context.Context, id string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, target, model, failed, created_at
		FROM messages WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content, &m.Target, &m.Model, &m.Failed, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// ReplaceDocument swaps the session's document in a single transaction.
// It returns ErrStaleDocument, leaving the stored document in place, when
// doc was uploaded before the current one.
func (s *SQLiteStore) ReplaceDocument(ctx context.Context, id string, doc *Document) error {
	secs := doc.Sections
	if secs == nil {
		secs = sections.New()
	}
	encoded, err := json.Marshal(secs)
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}

	return s.withSession(ctx, id, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO documents (session_id, doc_id, filename, full_text, sections, content_hash, uploaded_at, upload_seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (session_id) DO UPDATE SET
				doc_id = excluded.doc_id,
				filename = excluded.filename,
				full_text = excluded.full_text,
				sections = excluded.sections,
				content_hash = excluded.content_hash,
				uploaded_at = excluded.uploaded_at,
				upload_seq = excluded.upload_seq
			WHERE excluded.upload_seq >= documents.upload_seq`,
			id, doc.ID, doc.Filename, doc.FullText, string(encoded), doc.ContentHash, doc.UploadedAt.UTC(), doc.UploadedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("upsert document: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return ErrStaleDocument
		}
		return nil
	})
}

func (s *SQLiteStore) AppendMessages(ctx context.Context, id string, msgs ...Message) error {
	return s.withSession(ctx, id, func(tx *sql.Tx) error {
		for _, m := range msgs {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO messages (session_id, role, content, target, model, failed, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				id, string(m.Role), m.Content, m.Target, m.Model, m.Failed, m.CreatedAt.UTC())
			if err != nil {
				return fmt.Errorf("insert message: %w", err)
			}
		}
		return nil
	})
}

// withSession runs fn in a transaction after touching the session's
// updated_at, failing with ErrSessionNotFound for unknown IDs.
func (s *SQLiteStore) withSession(ctx context.Context, id string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE sessions SET updated_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// PurgeIdle deletes sessions not updated since before cutoff.
func (s *SQLiteStore) PurgeIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE updated_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
