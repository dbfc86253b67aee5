package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgallion1/paperchat/internal/parser"
	"github.com/dgallion1/paperchat/internal/session"
)

// Worker processes a single upload job.
type Worker struct {
	store   session.Store
	parsers parser.Options
	log     *slog.Logger
}

func NewWorker(store session.Store, parsers parser.Options, log *slog.Logger) *Worker {
	return &Worker{
		store:   store,
		parsers: parsers,
		log:     log,
	}
}

// Process extracts and segments the upload, then swaps the new document
// into the job's session. The session keeps its previous document if any
// step fails, or if a later-submitted upload has already been swapped in.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "session_id", job.SessionID, "filename", job.Filename)
	defer job.releaseFileData()

	// Phase 1: Extract
	job.SetStatus(StatusExtracting, "extracting")
	p, err := parser.ForFile(job.Filename, w.parsers)
	if err != nil {
		w.fail(log, job, "extracting", err)
		return
	}
	text, err := p.Extract(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		w.fail(log, job, "extracting", fmt.Errorf("extract: %w", err))
		return
	}
	job.SetText(text)
	if text == "" {
		log.Warn("no text extracted")
	}

	if err := ctx.Err(); err != nil {
		w.fail(log, job, "extracting", err)
		return
	}

	// Phase 2: Segment
	job.SetStatus(StatusSegmenting, "segmenting")
	doc := NewDocument(job.Filename, text, job.CreatedAt)
	job.SetDocument(doc)

	// Phase 3: Swap into the session.
	err = w.store.ReplaceDocument(ctx, job.SessionID, doc)
	if errors.Is(err, session.ErrStaleDocument) {
		log.Info("upload superseded by a newer one", "doc_id", doc.ID)
		job.AddError(err.Error())
		job.SetStatus(StatusSuperseded, "superseded")
		return
	}
	if err != nil {
		w.fail(log, job, "storing", fmt.Errorf("replace document: %w", err))
		return
	}

	log.Info("document ready", "doc_id", doc.ID, "chars", len(text), "sections_found", len(doc.Sections.Found()))
	job.SetStatus(StatusCompleted, "done")
}

func (w *Worker) fail(log *slog.Logger, job *Job, phase string, err error) {
	log.Error("upload failed", "phase", phase, "error", err)
	job.AddError(err.Error())
	job.SetStatus(StatusFailed, phase)
}
