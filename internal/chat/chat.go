// Package chat answers a session's questions from its current document.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/paperchat/internal/completion"
	"github.com/dgallion1/paperchat/internal/sections"
	"github.com/dgallion1/paperchat/internal/session"
)

// Completer produces an answer for a question and its context.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) completion.Result
}

// Exchange is one question and the reply recorded for it.
type Exchange struct {
	Query    session.Message   `json:"query"`
	Reply    session.Message   `json:"reply"`
	Result   completion.Result `json:"result"`
	Target   string            `json:"target"`
	Question string            `json:"question"`
}

// Service wires query resolution, completion and the transcript together.
type Service struct {
	store     session.Store
	completer Completer
	catalog   completion.Catalog
	log       *slog.Logger
}

func NewService(store session.Store, completer Completer, catalog completion.Catalog, log *slog.Logger) *Service {
	return &Service{
		store:     store,
		completer: completer,
		catalog:   catalog,
		log:       log,
	}
}

// Ask resolves query against the session's document and asks the model.
// A failed completion is recorded and returned as a normal reply; errors are
// returned only for unknown sessions, unknown models and store failures.
func (s *Service) Ask(ctx context.Context, sessionID, query, model string) (Exchange, error) {
	sess, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Exchange{}, err
	}
	model, err = s.catalog.Resolve(model)
	if err != nil {
		return Exchange{}, err
	}

	q := sections.ParseQuery(query)
	question, docContext := sections.Resolve(query, sess.Sections(), sess.FullText())

	log := s.log.With("session_id", sess.ID, "target", q.Target, "model", model)
	if sess.Document == nil {
		log.Warn("question asked before any document upload")
	}

	user := session.Message{
		Role:      session.RoleUser,
		Content:   query,
		Target:    q.Target,
		CreatedAt: time.Now().UTC(),
	}

	res := s.completer.Complete(ctx, completion.Request{
		Question: question,
		Context:  docContext,
		Model:    model,
	})

	reply := session.Message{
		Role:      session.RoleAssistant,
		Content:   res.Text(),
		Model:     res.Model,
		Failed:    !res.OK(),
		CreatedAt: time.Now().UTC(),
	}
	if reply.Model == "" {
		reply.Model = model
	}

	// Recorded even if the caller has gone away.
	if err := s.store.AppendMessages(context.WithoutCancel(ctx), sess.ID, user, reply); err != nil {
		return Exchange{}, fmt.Errorf("record messages: %w", err)
	}

	log.Info("answered", "context_chars", len(docContext), "failed", reply.Failed)
	return Exchange{
		Query:    user,
		Reply:    reply,
		Result:   res,
		Target:   q.Target,
		Question: question,
	}, nil
}
