package session

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/dgallion1/paperchat/internal/sections"
)

// ErrSessionNotFound is returned for unknown or expired session IDs.
var ErrSessionNotFound = errors.New("session not found")

// ErrStaleDocument is returned by ReplaceDocument when the session already
// holds a document uploaded after the incoming one.
var ErrStaleDocument = errors.New("a newer upload is already current")

// Role identifies who wrote a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Document is one uploaded file after extraction and segmentation.
// It is never modified after creation; a new upload replaces it wholesale.
// UploadedAt is when the upload was submitted, not when it finished.
type Document struct {
	ID          string              `json:"doc_id"`
	Filename    string              `json:"filename"`
	FullText    string              `json:"-"`
	Sections    sections.SectionMap `json:"-"`
	ContentHash string              `json:"content_hash"`
	UploadedAt  time.Time           `json:"uploaded_at"`
}

// Message is one transcript entry.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Target    string    `json:"target,omitempty"` // Query target for user messages.
	Model     string    `json:"model,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the per-user state: the current document and the chat transcript.
type Session struct {
	ID        string    `json:"session_id"`
	Document  *Document `json:"document,omitempty"`
	Messages  []Message `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullText returns the current document text, or "" before any upload.
func (s *Session) FullText() string {
	if s.Document == nil {
		return ""
	}
	return s.Document.FullText
}

// Sections returns the current SectionMap, or nil before any upload.
func (s *Session) Sections() sections.SectionMap {
	if s.Document == nil {
		return nil
	}
	return s.Document.Sections
}

// clone copies the session so callers cannot alias store state. The Document
// is shared because it is immutable.
func (s *Session) clone() *Session {
	out := *s
	out.Messages = slices.Clone(s.Messages)
	return &out
}

// Store persists sessions. Get returns a snapshot; all changes go through
// ReplaceDocument and AppendMessages. ReplaceDocument orders documents by
// UploadedAt and refuses older ones with ErrStaleDocument.
type Store interface {
	Create(ctx context.Context) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	ReplaceDocument(ctx context.Context, id string, doc *Document) error
	AppendMessages(ctx context.Context, id string, msgs ...Message) error
	Delete(ctx context.Context, id string) error
	Close() error
}
