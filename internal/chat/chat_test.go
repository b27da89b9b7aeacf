package chat

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatbot-kit/internal/models"
	"chatbot-kit/internal/storage"
	"chatbot-kit/internal/stream"
)

type fakeCompleter struct {
	parts    []stream.Part
	err      error
	received []models.ChatMessage
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []models.ChatMessage) (<-chan stream.Part, error) {
	f.received = messages
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan stream.Part, len(f.parts))
	for _, p := range f.parts {
		ch <- p
	}
	close(ch)
	return ch, nil
}

func openStore(t *testing.T, initial ...models.ChatHistory) (*Store, *storage.MemoryStore) {
	t.Helper()
	mem := storage.NewMemoryStore(initial...)
	s := NewStore(mem)
	require.NoError(t, s.Open(context.Background()))
	return s, mem
}

func TestOpen_EmptyCreatesConversation(t *testing.T) {
	s, mem := openStore(t)

	hs := s.Histories()
	require.Len(t, hs, 1)
	assert.Equal(t, models.DefaultHistoryTitle, hs[0].Title)
	assert.Equal(t, hs[0].ID, s.ActiveID())
	assert.Empty(t, s.Messages())
	assert.Equal(t, 1, mem.Saves)
}

func TestOpen_ActivatesMostRecent(t *testing.T) {
	older := models.NewChatHistory()
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := models.NewChatHistory()
	newer.Messages = []models.ChatMessage{models.NewMessage(models.RoleUser, "hey")}

	s, mem := openStore(t, newer, older)

	assert.Equal(t, newer.ID, s.ActiveID())
	require.Len(t, s.Messages(), 1)
	assert.Equal(t, 0, mem.Saves)
}

func TestRun_StreamsReplyAndTitlesConversation(t *testing.T) {
	s, mem := openStore(t)
	fc := &fakeCompleter{parts: []stream.Part{
		{Type: stream.PartStart, MessageID: "msg-1"},
		stream.TextPart("Hi"),
		stream.TextPart(" there!"),
		stream.FinishPart(stream.Finish{Reason: "stop"}),
	}}
	sess := NewSession(s, fc)

	var updates int
	err := sess.Run(context.Background(), "Hello", func([]models.ChatMessage) { updates++ })
	require.NoError(t, err)

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Hi there!", msgs[1].Content)
	assert.False(t, msgs[1].Pending)
	assert.Empty(t, msgs[1].Error)
	assert.Equal(t, 4, updates)

	require.Len(t, fc.received, 1)
	assert.Equal(t, "Hello", fc.received[0].Content)

	persisted, err := mem.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, "Hello", persisted[0].Title)
	require.Len(t, persisted[0].Messages, 2)
	assert.Equal(t, "Hi there!", persisted[0].Messages[1].Content)
	assert.False(t, sess.Busy())
}

func TestRun_ErrorKeepsPartialReply(t *testing.T) {
	s, _ := openStore(t)
	fc := &fakeCompleter{parts: []stream.Part{
		stream.TextPart("partial"),
		stream.ErrorPart("An error occurred."),
	}}
	sess := NewSession(s, fc)

	err := sess.Run(context.Background(), "Hello", nil)
	require.ErrorIs(t, err, ErrStream)

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "partial", msgs[1].Content)
	assert.Equal(t, "An error occurred.", msgs[1].Error)
	assert.False(t, sess.Busy())
}

func TestRun_ClosedWithoutTerminalPart(t *testing.T) {
	s, _ := openStore(t)
	sess := NewSession(s, &fakeCompleter{parts: []stream.Part{stream.TextPart("cut")}})

	err := sess.Run(context.Background(), "Hello", nil)
	require.ErrorIs(t, err, ErrStream)

	msgs := s.Messages()
	assert.Equal(t, stream.ErrUnexpectedEnd.Error(), msgs[1].Error)
}

func TestRun_CompleterFailure(t *testing.T) {
	s, _ := openStore(t)
	sess := NewSession(s, &fakeCompleter{err: errors.New("connection refused")})

	err := sess.Run(context.Background(), "Hello", nil)
	require.ErrorIs(t, err, ErrStream)
	assert.False(t, sess.Busy())

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "connection refused", msgs[1].Error)
}

func TestBegin_RejectsBlankAndConcurrentInput(t *testing.T) {
	s, _ := openStore(t)
	sess := NewSession(s, &fakeCompleter{parts: []stream.Part{stream.TextPart("x")}})

	_, err := sess.Begin(context.Background(), "  \n\t")
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Empty(t, s.Messages())

	_, err = sess.Begin(context.Background(), "first")
	require.NoError(t, err)
	_, err = sess.Begin(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)

	_, err = sess.New(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, sess.Select(s.ActiveID()), ErrBusy)
}

func TestRun_FailedRepliesAreNotResent(t *testing.T) {
	s, _ := openStore(t)
	sess := NewSession(s, &fakeCompleter{parts: []stream.Part{stream.ErrorPart("boom")}})
	require.Error(t, sess.Run(context.Background(), "one", nil))

	fc := &fakeCompleter{parts: []stream.Part{stream.FinishPart(stream.Finish{})}}
	sess.completer = fc
	require.NoError(t, sess.Run(context.Background(), "two", nil))

	require.Len(t, fc.received, 2)
	assert.Equal(t, "one", fc.received[0].Content)
	assert.Equal(t, "two", fc.received[1].Content)
}

func TestStore_NewLeavesPreviousConversationIntact(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	first := s.ActiveID()
	require.NoError(t, s.SetMessages(ctx, []models.ChatMessage{models.NewMessage(models.RoleUser, "keep me")}))

	h, err := s.New(ctx)
	require.NoError(t, err)
	assert.Equal(t, h.ID, s.ActiveID())
	assert.Empty(t, s.Messages())

	require.NoError(t, s.Select(first))
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "keep me", msgs[0].Content)
}

func TestStore_DeleteActiveActivatesFreshConversation(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	active := s.ActiveID()

	require.NoError(t, s.Delete(ctx, active))

	hs := s.Histories()
	require.Len(t, hs, 1)
	assert.NotEqual(t, active, hs[0].ID)
	assert.Equal(t, hs[0].ID, s.ActiveID())
	assert.Empty(t, s.Messages())
}

func TestStore_DeleteInactiveKeepsActive(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	first := s.ActiveID()
	second, err := s.New(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, first))
	assert.Equal(t, second.ID, s.ActiveID())
	assert.Len(t, s.Histories(), 1)

	assert.ErrorIs(t, s.Delete(ctx, "missing"), ErrNotFound)
	assert.ErrorIs(t, s.Select("missing"), ErrNotFound)
}

func TestDeriveTitle(t *testing.T) {
	long := strings.Repeat("abcdefghij", 4)

	tests := []struct {
		name string
		msgs []models.ChatMessage
		want string
	}{
		{"empty", nil, ""},
		{"first user message", []models.ChatMessage{
			models.NewMessage(models.RoleSystem, "be nice"),
			models.NewMessage(models.RoleUser, "Hello"),
		}, "Hello"},
		{"collapses whitespace", []models.ChatMessage{
			models.NewMessage(models.RoleUser, "two\nlines  here"),
		}, "two lines here"},
		{"truncates", []models.ChatMessage{
			models.NewMessage(models.RoleUser, long),
		}, long[:30] + "..."},
		{"counts runes", []models.ChatMessage{
			models.NewMessage(models.RoleUser, strings.Repeat("é", 31)),
		}, strings.Repeat("é", 30) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.msgs))
		})
	}
}

// blockingCompleter holds Complete open until release is closed.
type blockingCompleter struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingCompleter) Complete(ctx context.Context, messages []models.ChatMessage) (<-chan stream.Part, error) {
	close(b.entered)
	<-b.release
	ch := make(chan stream.Part, 1)
	ch <- stream.FinishPart(stream.Finish{})
	close(ch)
	return ch, nil
}

// flakyStore fails every save after the first ok ones.
type flakyStore struct {
	*storage.MemoryStore
	ok int
}

func (f *flakyStore) Save(ctx context.Context, histories []models.ChatHistory) error {
	if f.ok <= 0 {
		return errors.New("disk full")
	}
	f.ok--
	return f.MemoryStore.Save(ctx, histories)
}

func openFileStore(t *testing.T, path string) *Store {
	t.Helper()
	fs, err := storage.NewFileStore(path)
	require.NoError(t, err)
	s := NewStore(fs)
	require.NoError(t, s.Open(context.Background()))
	return s
}

func TestInterrupt_PersistsPartialReply(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "histories.json")

	sess := NewSession(openFileStore(t, path), &fakeCompleter{})
	_, err := sess.Begin(ctx, "Hello")
	require.NoError(t, err)
	done, err := sess.Apply(ctx, stream.TextPart("Hi the"))
	require.NoError(t, err)
	require.False(t, done)

	require.NoError(t, sess.Interrupt(ctx))
	assert.False(t, sess.Busy())

	reopened := openFileStore(t, path)
	msgs := reopened.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hi the", msgs[1].Content)
	assert.Equal(t, ErrInterrupted.Error(), msgs[1].Error)

	fc := &fakeCompleter{parts: []stream.Part{stream.FinishPart(stream.Finish{})}}
	require.NoError(t, NewSession(reopened, fc).Run(ctx, "again", nil))
	require.Len(t, fc.received, 2)
	assert.Equal(t, models.RoleUser, fc.received[0].Role)
	assert.Equal(t, "again", fc.received[1].Content)
}

func TestOpen_MarksReplyCutOffWithoutInterrupt(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "histories.json")

	sess := NewSession(openFileStore(t, path), &fakeCompleter{})
	_, err := sess.Begin(ctx, "Hello")
	require.NoError(t, err)
	_, err = sess.Apply(ctx, stream.TextPart("Hi the"))
	require.NoError(t, err)

	// The process stops here without settling the reply.
	reopened := openFileStore(t, path)
	msgs := reopened.Messages()
	require.Len(t, msgs, 2)
	assert.Empty(t, msgs[1].Content)
	assert.Equal(t, ErrInterrupted.Error(), msgs[1].Error)

	fc := &fakeCompleter{parts: []stream.Part{stream.FinishPart(stream.Finish{})}}
	require.NoError(t, NewSession(reopened, fc).Run(ctx, "again", nil))
	require.Len(t, fc.received, 2)
	for _, m := range fc.received {
		assert.Equal(t, models.RoleUser, m.Role)
	}
}

func TestRequestMessages_SkipsEmptyReplies(t *testing.T) {
	msgs := []models.ChatMessage{
		models.NewMessage(models.RoleUser, "Hello"),
		models.NewMessage(models.RoleAssistant, ""),
		models.NewMessage(models.RoleUser, "again"),
	}

	got := requestMessages(msgs)
	require.Len(t, got, 2)
	assert.Equal(t, "again", got[1].Content)
}

func TestBegin_DoesNotHoldLockWhileConnecting(t *testing.T) {
	s, _ := openStore(t)
	bc := &blockingCompleter{entered: make(chan struct{}), release: make(chan struct{})}
	sess := NewSession(s, bc)
	active := s.ActiveID()

	result := make(chan error, 1)
	go func() {
		_, err := sess.Begin(context.Background(), "Hello")
		result <- err
	}()
	<-bc.entered

	busy := make(chan bool, 1)
	go func() { busy <- sess.Busy() }()
	select {
	case b := <-busy:
		assert.True(t, b)
	case <-time.After(time.Second):
		t.Fatal("Busy blocked while the completer was connecting")
	}

	_, err := sess.New(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, active, s.ActiveID())

	close(bc.release)
	require.NoError(t, <-result)
	require.Len(t, s.Messages(), 2)
}

func TestBegin_RollsBackWhenSaveFails(t *testing.T) {
	fs := &flakyStore{MemoryStore: storage.NewMemoryStore(), ok: 1}
	s := NewStore(fs)
	require.NoError(t, s.Open(context.Background()))
	sess := NewSession(s, &fakeCompleter{})

	_, err := sess.Begin(context.Background(), "Hello")
	require.ErrorIs(t, err, ErrPersist)
	assert.False(t, sess.Busy())
	assert.Empty(t, s.Messages())
	assert.Empty(t, s.Histories()[0].Messages)
	assert.Equal(t, models.DefaultHistoryTitle, s.Histories()[0].Title)
}

func TestRun_ReportsFailedSaveOnSettle(t *testing.T) {
	// Open and Begin save; settling the reply does not.
	fs := &flakyStore{MemoryStore: storage.NewMemoryStore(), ok: 2}
	s := NewStore(fs)
	require.NoError(t, s.Open(context.Background()))
	sess := NewSession(s, &fakeCompleter{parts: []stream.Part{
		stream.TextPart("Hi"),
		stream.FinishPart(stream.Finish{}),
	}})

	err := sess.Run(context.Background(), "Hello", nil)
	require.ErrorIs(t, err, ErrPersist)
	assert.False(t, sess.Busy())

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hi", msgs[1].Content)
	assert.False(t, msgs[1].Pending)
}
