package pagination

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/buddytalk/internal/bus"
	"github.com/matheus3301/buddytalk/internal/chat"
	"github.com/matheus3301/buddytalk/internal/status"
	"github.com/matheus3301/buddytalk/internal/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func msg(id string, minutes int) chat.Message {
	return chat.Message{ID: id, ChannelID: "1", SenderID: "u", Text: id, Timestamp: base.Add(time.Duration(minutes) * time.Minute), Status: chat.Sent}
}

type fakeFetcher struct {
	mu      sync.Mutex
	calls   []string
	page    []chat.Message
	err     error
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeFetcher) FetchMore(ctx context.Context, channelID, anchorID string, dir chat.Direction) ([]chat.Message, error) {
	f.mu.Lock()
	f.calls = append(f.calls, dir.String()+":"+anchorID)
	gate, entered := f.gate, f.entered
	page, err := f.page, f.err
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return page, err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func setup(t *testing.T, f *fakeFetcher) (*Controller, *window.Store, *bus.Bus) {
	t.Helper()
	b := bus.New()
	w := window.New()
	tok := w.ResetForChannel("1")
	require.NoError(t, w.SetWindow(tok, []chat.Message{msg("m5", 5), msg("m4", 4), msg("m3", 3)}))
	return NewController(f, w, b, nil), w, b
}

func windowIDs(w *window.Store) []string {
	var out []string
	for _, m := range w.Messages() {
		out = append(out, m.ID)
	}
	return out
}

func TestFetchOlderPrependsPage(t *testing.T) {
	f := &fakeFetcher{page: []chat.Message{msg("m2", 2), msg("m1", 1)}}
	c, w, _ := setup(t, f)

	require.NoError(t, c.FetchMore(context.Background(), chat.Older))

	assert.Equal(t, []string{"m1", "m2", "m3", "m4", "m5"}, windowIDs(w))
	assert.Equal(t, []string{"older:m3"}, f.calls)
	assert.Equal(t, status.Idle, c.State(chat.Older))
}

func TestFetchNewerUsesLastSentAnchor(t *testing.T) {
	f := &fakeFetcher{page: []chat.Message{msg("m6", 6)}}
	c, w, _ := setup(t, f)

	require.NoError(t, c.FetchMore(context.Background(), chat.Newer))

	assert.Equal(t, []string{"newer:m5"}, f.calls)
	assert.Equal(t, []string{"m3", "m4", "m5", "m6"}, windowIDs(w))
}

func TestConcurrentFetchSameDirectionRejected(t *testing.T) {
	f := &fakeFetcher{
		page:    []chat.Message{msg("m6", 6)},
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	c, w, _ := setup(t, f)

	done := make(chan error, 1)
	go func() { done <- c.FetchMore(context.Background(), chat.Newer) }()
	<-f.entered

	assert.True(t, c.Fetching(chat.Newer))
	err := c.FetchMore(context.Background(), chat.Newer)
	assert.ErrorIs(t, err, chat.ErrFetchInFlight)

	close(f.gate)
	require.NoError(t, <-done)

	assert.Equal(t, 1, f.callCount())
	assert.Equal(t, []string{"m3", "m4", "m5", "m6"}, windowIDs(w))
	assert.Equal(t, status.Idle, c.State(chat.Newer))
}

func TestDirectionsAreIndependent(t *testing.T) {
	f := &fakeFetcher{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 2),
	}
	c, _, _ := setup(t, f)

	errs := make(chan error, 2)
	go func() { errs <- c.FetchMore(context.Background(), chat.Newer) }()
	<-f.entered
	go func() { errs <- c.FetchMore(context.Background(), chat.Older) }()
	<-f.entered

	assert.True(t, c.Fetching(chat.Older))
	assert.True(t, c.Fetching(chat.Newer))
	close(f.gate)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	assert.Equal(t, 2, f.callCount())
}

func TestFetchErrorNotifiesAndAllowsRetry(t *testing.T) {
	f := &fakeFetcher{err: errors.New("connection refused")}
	c, w, b := setup(t, f)
	events, unsub := b.Subscribe(bus.KindNotifyError, 4)
	defer unsub()

	err := c.FetchMore(context.Background(), chat.Older)
	require.Error(t, err)
	assert.True(t, chat.IsTransport(err))
	assert.Equal(t, status.Idle, c.State(chat.Older))
	assert.Equal(t, []string{"m3", "m4", "m5"}, windowIDs(w))

	select {
	case evt := <-events:
		n, ok := evt.Payload.(chat.Notification)
		require.True(t, ok)
		assert.Equal(t, chat.LevelError, n.Level)
		assert.Contains(t, n.Text, "connection refused")
	case <-time.After(time.Second):
		t.Fatal("expected notify.error event")
	}

	f.mu.Lock()
	f.err = nil
	f.page = []chat.Message{msg("m2", 2)}
	f.mu.Unlock()

	require.NoError(t, c.FetchMore(context.Background(), chat.Older))
	assert.Equal(t, status.Idle, c.State(chat.Older))
	assert.Equal(t, []string{"m2", "m3", "m4", "m5"}, windowIDs(w))
}

func TestStaleCompletionDiscarded(t *testing.T) {
	f := &fakeFetcher{
		page:    []chat.Message{msg("m1", 1)},
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	c, w, _ := setup(t, f)

	done := make(chan error, 1)
	go func() { done <- c.FetchMore(context.Background(), chat.Older) }()
	<-f.entered

	w.ResetForChannel("2")
	c.Reset()
	close(f.gate)

	assert.ErrorIs(t, <-done, chat.ErrStale)
	assert.Empty(t, w.Messages())
	assert.Equal(t, status.Idle, c.State(chat.Older))
}

func TestStaleFailureIsSilent(t *testing.T) {
	f := &fakeFetcher{
		err:     errors.New("connection reset"),
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	c, w, b := setup(t, f)
	events, unsub := b.Subscribe(bus.KindNotifyError, 4)
	defer unsub()

	done := make(chan error, 1)
	go func() { done <- c.FetchMore(context.Background(), chat.Older) }()
	<-f.entered

	w.ResetForChannel("2")
	c.Reset()
	close(f.gate)

	err := <-done
	assert.ErrorIs(t, err, chat.ErrStale)
	assert.False(t, chat.IsTransport(err))
	assert.Equal(t, status.Idle, c.State(chat.Older))
	select {
	case evt := <-events:
		t.Fatalf("unexpected notification %+v", evt.Payload)
	default:
	}
}

func TestResetReleasesDirectionForNewChannel(t *testing.T) {
	f := &fakeFetcher{
		page:    []chat.Message{msg("m1", 1)},
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 2),
	}
	c, w, _ := setup(t, f)

	stale := make(chan error, 1)
	go func() { stale <- c.FetchMore(context.Background(), chat.Older) }()
	<-f.entered

	tok := w.ResetForChannel("2")
	c.Reset()
	require.NoError(t, w.SetWindow(tok, []chat.Message{
		{ID: "c2", ChannelID: "2", Timestamp: base.Add(time.Hour), Status: chat.Sent},
	}))

	fresh := make(chan error, 1)
	go func() { fresh <- c.FetchMore(context.Background(), chat.Older) }()
	<-f.entered
	assert.True(t, c.Fetching(chat.Older))

	close(f.gate)
	assert.ErrorIs(t, <-stale, chat.ErrStale)
	require.NoError(t, <-fresh)
	assert.Equal(t, status.Idle, c.State(chat.Older))

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, []string{"older:m3", "older:c2"}, f.calls)
}

func TestFetchWithoutChannelOrAnchor(t *testing.T) {
	f := &fakeFetcher{}
	c := NewController(f, window.New(), nil, nil)
	assert.ErrorIs(t, c.FetchMore(context.Background(), chat.Older), chat.ErrNoChannel)

	w := window.New()
	w.ResetForChannel("1")
	c = NewController(f, w, nil, nil)
	assert.ErrorIs(t, c.FetchMore(context.Background(), chat.Newer), chat.ErrNoAnchor)
	assert.Zero(t, f.callCount())
}
