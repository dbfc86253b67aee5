package chat

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/paperchat/internal/completion"
	"github.com/dgallion1/paperchat/internal/pipeline"
	"github.com/dgallion1/paperchat/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	mu     sync.Mutex
	calls  []completion.Request
	result func(completion.Request) completion.Result
}

func (f *fakeCompleter) Complete(ctx context.Context, req completion.Request) completion.Result {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.result != nil {
		return f.result(req)
	}
	return completion.Result{Answer: "answer to " + req.Question, Model: req.Model}
}

const paper = "Title\nAbstract\nWe study X.\nResults\nX is 4."

func newService(t *testing.T, fc *fakeCompleter) (*Service, session.Store, string) {
	t.Helper()
	store := session.NewMemoryStore(10, time.Hour)
	t.Cleanup(func() { store.Close() })

	sess, err := store.Create(context.Background())
	require.NoError(t, err)

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	svc := NewService(store, fc, completion.NewCatalog([]string{"model-a", "model-b"}), log)
	return svc, store, sess.ID
}

func upload(t *testing.T, store session.Store, id, text string) {
	t.Helper()
	require.NoError(t, store.ReplaceDocument(context.Background(), id, pipeline.NewDocument("paper.txt", text, time.Now())))
}

func TestAsk_SectionContext(t *testing.T) {
	fc := &fakeCompleter{}
	svc, store, id := newService(t, fc)
	upload(t, store, id, paper)

	ex, err := svc.Ask(context.Background(), id, "abstract: What is studied?", "")
	require.NoError(t, err)

	require.Len(t, fc.calls, 1)
	assert.Equal(t, "What is studied?", fc.calls[0].Question)
	assert.Equal(t, "Abstract\nWe study X.\n", fc.calls[0].Context)
	assert.Equal(t, "model-a", fc.calls[0].Model, "empty model falls back to the default")

	assert.Equal(t, "abstract", ex.Target)
	assert.Equal(t, "answer to What is studied?", ex.Reply.Content)
	assert.False(t, ex.Reply.Failed)

	sess, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, session.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, "abstract: What is studied?", sess.Messages[0].Content)
	assert.Equal(t, session.RoleAssistant, sess.Messages[1].Role)
	assert.Equal(t, "model-a", sess.Messages[1].Model)
}

func TestAsk_FullTextFallback(t *testing.T) {
	fc := &fakeCompleter{}
	svc, store, id := newService(t, fc)
	upload(t, store, id, paper)

	for _, q := range []string{"What is X?", "all: What is X?", "appendix: What is X?"} {
		_, err := svc.Ask(context.Background(), id, q, "model-b")
		require.NoError(t, err)
	}
	require.Len(t, fc.calls, 3)
	for _, c := range fc.calls {
		assert.Equal(t, paper, c.Context)
		assert.Equal(t, "model-b", c.Model)
	}
}

func TestAsk_EmptySectionIsForwarded(t *testing.T) {
	fc := &fakeCompleter{}
	svc, store, id := newService(t, fc)
	upload(t, store, id, paper)

	_, err := svc.Ask(context.Background(), id, "conclusion: Any conclusion?", "")
	require.NoError(t, err)
	require.Len(t, fc.calls, 1)
	assert.Equal(t, "", fc.calls[0].Context)
}

func TestAsk_BeforeUpload(t *testing.T) {
	fc := &fakeCompleter{}
	svc, _, id := newService(t, fc)

	_, err := svc.Ask(context.Background(), id, "results: anything?", "")
	require.NoError(t, err)
	require.Len(t, fc.calls, 1)
	assert.Equal(t, "anything?", fc.calls[0].Question)
	assert.Empty(t, fc.calls[0].Context)
}

func TestAsk_FailureIsRecordedAsReply(t *testing.T) {
	fc := &fakeCompleter{result: func(req completion.Request) completion.Result {
		return completion.Result{Model: req.Model, Failure: &completion.Failure{Kind: completion.KindAuth, StatusCode: 401, Message: "Invalid API Key"}}
	}}
	svc, store, id := newService(t, fc)
	upload(t, store, id, paper)

	ex, err := svc.Ask(context.Background(), id, "results: what?", "")
	require.NoError(t, err)
	assert.True(t, ex.Reply.Failed)
	assert.Equal(t, "Error generating response: Invalid API Key", ex.Reply.Content)

	sess, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.True(t, sess.Messages[1].Failed)
}

func TestAsk_Errors(t *testing.T) {
	fc := &fakeCompleter{}
	svc, _, id := newService(t, fc)

	_, err := svc.Ask(context.Background(), "missing", "q", "")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = svc.Ask(context.Background(), id, "q", "gpt-unknown")
	assert.ErrorIs(t, err, completion.ErrUnknownModel)

	assert.Empty(t, fc.calls, "no completion call on request errors")
}
