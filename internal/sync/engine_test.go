package sync

import (
	"context"
	"errors"
	"path/filepath"
	gosync "sync"
	"testing"
	"time"

	"github.com/matheus3301/buddytalk/internal/bus"
	"github.com/matheus3301/buddytalk/internal/chat"
	"github.com/matheus3301/buddytalk/internal/failcache"
	"github.com/matheus3301/buddytalk/internal/status"
	"github.com/matheus3301/buddytalk/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func msg(id, channelID, userID string, minutes int) chat.Message {
	return chat.Message{ID: id, ChannelID: channelID, SenderID: userID, Text: id, Timestamp: base.Add(time.Duration(minutes) * time.Minute), Status: chat.Sent}
}

// fakeTransport serves newest-first pages per channel. A gate for a channel
// blocks FetchLatest until closed.
type fakeTransport struct {
	mu      gosync.Mutex
	latest  map[string][]chat.Message
	older   map[string][]chat.Message
	gates   map[string]chan struct{}
	sendErr error
	sent    []string
	fetches int
	nextID  int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		latest: map[string][]chat.Message{},
		older:  map[string][]chat.Message{},
		gates:  map[string]chan struct{}{},
	}
}

func (f *fakeTransport) FetchLatest(ctx context.Context, channelID string) ([]chat.Message, error) {
	f.mu.Lock()
	f.fetches++
	gate := f.gates[channelID]
	page := f.latest[channelID]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return page, nil
}

func (f *fakeTransport) FetchMore(ctx context.Context, channelID, anchorID string, dir chat.Direction) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if dir == chat.Older {
		return f.older[channelID], nil
	}
	return nil, nil
}

func (f *fakeTransport) Send(ctx context.Context, channelID, userID, text string) (chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	if f.sendErr != nil {
		return chat.Message{}, f.sendErr
	}
	f.nextID++
	return chat.Message{
		ID:        "s" + string(rune('0'+f.nextID)),
		ChannelID: channelID,
		SenderID:  userID,
		Text:      text,
		Timestamp: base.Add(time.Hour),
	}, nil
}

func testDB(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func ids(msgs []chat.Message) []string {
	var out []string
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func newEngine(t *testing.T, ft *fakeTransport) (*Engine, *store.DB, *bus.Bus) {
	t.Helper()
	db := testDB(t)
	b := bus.New()
	e := NewEngine(ft, failcache.Init(db, failcache.DefaultKey, nil), NewReconciler(db, nil), b, nil)
	return e, db, b
}

func TestSelectChannelLoadsWindowAscending(t *testing.T) {
	ft := newFakeTransport()
	ft.latest["1"] = []chat.Message{msg("m2", "1", "B", 5), msg("m1", "1", "B", 0)}
	e, _, _ := newEngine(t, ft)
	e.SelectUser("A")

	require.NoError(t, e.SelectChannel(context.Background(), "1"))

	st := e.Snapshot()
	assert.Equal(t, "1", st.ChannelID)
	assert.False(t, st.Loading)
	assert.Equal(t, []string{"m1", "m2"}, ids(st.Messages))
	assert.Equal(t, status.Idle, st.Older)
	assert.Equal(t, status.Idle, st.Newer)
}

func TestFetchOlderThroughEngine(t *testing.T) {
	ft := newFakeTransport()
	ft.latest["1"] = []chat.Message{msg("m2", "1", "B", 5), msg("m1", "1", "B", 0)}
	ft.older["1"] = []chat.Message{msg("m0", "1", "B", -5)}
	e, _, _ := newEngine(t, ft)
	require.NoError(t, e.SelectChannel(context.Background(), "1"))

	require.NoError(t, e.FetchMore(context.Background(), chat.Older))
	assert.Equal(t, []string{"m0", "m1", "m2"}, ids(e.Visible()))

	ft.older["1"] = []chat.Message{msg("m1", "1", "B", 0)}
	require.NoError(t, e.FetchMore(context.Background(), chat.Older))
	assert.Equal(t, []string{"m0", "m1", "m2"}, ids(e.Visible()))
}

func TestSendSuccessAppendsToWindow(t *testing.T) {
	ft := newFakeTransport()
	ft.latest["1"] = []chat.Message{msg("m1", "1", "B", 0)}
	e, _, b := newEngine(t, ft)
	e.SelectUser("A")
	require.NoError(t, e.SelectChannel(context.Background(), "1"))

	views, unsub := b.Subscribe(bus.KindViewChanged, 8)
	defer unsub()

	sent, err := e.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, chat.Sent, sent.Status)

	visible := e.Visible()
	assert.Equal(t, sent.ID, visible[len(visible)-1].ID)
	assert.Empty(t, e.Failed())

	select {
	case <-views:
	case <-time.After(time.Second):
		t.Fatal("expected view.changed after send")
	}
}

func TestSendFailureShowsFailedRecord(t *testing.T) {
	ft := newFakeTransport()
	later := msg("m2", "1", "B", 0)
	later.Timestamp = time.Now().Add(24 * time.Hour)
	ft.latest["1"] = []chat.Message{later, msg("m1", "1", "B", 0)}
	ft.sendErr = errors.New("network down")
	e, _, _ := newEngine(t, ft)
	e.SelectUser("A")
	require.NoError(t, e.SelectChannel(context.Background(), "1"))

	rec, err := e.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, chat.IsTransport(err))
	assert.Equal(t, chat.Failed, rec.Status)

	visible := e.Visible()
	require.Len(t, visible, 3)
	assert.Equal(t, []string{"m1", rec.ID, "m2"}, ids(visible))

	e.SelectUser("B")
	assert.Equal(t, []string{"m1", "m2"}, ids(e.Visible()))
}

func TestSendRejectedWithoutChannel(t *testing.T) {
	ft := newFakeTransport()
	e, _, _ := newEngine(t, ft)

	_, err := e.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, chat.ErrNoChannel)
	assert.Empty(t, ft.sent)
}

func TestStaleInitialLoadDiscarded(t *testing.T) {
	ft := newFakeTransport()
	ft.latest["1"] = []chat.Message{msg("old", "1", "B", 0)}
	ft.latest["2"] = []chat.Message{msg("new", "2", "B", 0)}
	gate := make(chan struct{})
	ft.gates["1"] = gate
	e, _, _ := newEngine(t, ft)

	done := make(chan error, 1)
	go func() { done <- e.SelectChannel(context.Background(), "1") }()

	require.Eventually(t, func() bool {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		return ft.fetches == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, e.SelectChannel(context.Background(), "2"))
	close(gate)

	assert.ErrorIs(t, <-done, chat.ErrStale)
	st := e.Snapshot()
	assert.Equal(t, "2", st.ChannelID)
	assert.False(t, st.Loading)
	assert.Equal(t, []string{"new"}, ids(st.Messages))
}

func TestRestoreUsesCheckpointThenDefaults(t *testing.T) {
	ft := newFakeTransport()
	ft.latest["3"] = []chat.Message{msg("m1", "3", "C", 0)}
	db := testDB(t)
	r := NewReconciler(db, nil)

	e := NewEngine(ft, failcache.Init(db, failcache.DefaultKey, nil), r, nil, nil)
	require.NoError(t, e.Restore(context.Background(), "1", "russell"))
	assert.Equal(t, "1", e.ChannelID())
	assert.Equal(t, "russell", e.User())

	e.SelectUser("sam")
	require.NoError(t, e.SelectChannel(context.Background(), "3"))

	restored := NewEngine(ft, failcache.Init(db, failcache.DefaultKey, nil), r, nil, nil)
	require.NoError(t, restored.Restore(context.Background(), "1", "russell"))
	assert.Equal(t, "3", restored.ChannelID())
	assert.Equal(t, "sam", restored.User())
	assert.Equal(t, []string{"m1"}, ids(restored.Visible()))
}

func TestReconcilerMissingCheckpoint(t *testing.T) {
	r := NewReconciler(testDB(t), nil)
	ch, u, err := r.Selection()
	require.NoError(t, err)
	assert.Empty(t, ch)
	assert.Empty(t, u)

	require.NoError(t, r.UpdateCheckpoint("selection.channel", "2"))
	v, err := r.GetCheckpoint("selection.channel")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}
