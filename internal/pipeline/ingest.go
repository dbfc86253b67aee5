package pipeline

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/dgallion1/paperchat/internal/parser"
	"github.com/dgallion1/paperchat/internal/sections"
	"github.com/dgallion1/paperchat/internal/session"
	"github.com/google/uuid"
)

// Ingest extracts the text of an uploaded file and segments it into a new
// Document. An empty extraction is not an error: the document simply has no
// sections and an empty full text.
func Ingest(data []byte, filename string, opts parser.Options) (*session.Document, error) {
	text, err := parser.ExtractText(bytes.NewReader(data), filename, opts)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}
	return NewDocument(filename, text, time.Now()), nil
}

// NewDocument segments already-extracted text. uploadedAt orders the
// document against other uploads to the same session.
func NewDocument(filename, text string, uploadedAt time.Time) *session.Document {
	return &session.Document{
		ID:          uuid.NewString(),
		Filename:    filename,
		FullText:    text,
		Sections:    sections.Segment(text),
		ContentHash: ContentHashHex([]byte(text)),
		UploadedAt:  uploadedAt.UTC(),
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
