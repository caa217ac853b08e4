// Package sync orchestrates the reconciliation engine: channel selection,
// initial load, pagination and sends for the active channel.
package sync

import (
	"context"
	"errors"
	gosync "sync"

	"github.com/matheus3301/buddytalk/internal/bus"
	"github.com/matheus3301/buddytalk/internal/chat"
	"github.com/matheus3301/buddytalk/internal/failcache"
	"github.com/matheus3301/buddytalk/internal/outbox"
	"github.com/matheus3301/buddytalk/internal/pagination"
	"github.com/matheus3301/buddytalk/internal/status"
	"github.com/matheus3301/buddytalk/internal/view"
	"github.com/matheus3301/buddytalk/internal/window"
	"go.uber.org/zap"
)

// State is a point-in-time snapshot of the engine for the presentation layer.
type State struct {
	ChannelID string
	UserID    string
	Loading   bool
	Older     status.State
	Newer     status.State
	Sending   bool
	Degraded  bool
	Messages  []chat.Message
}

// Engine owns the window of the selected channel and the components that
// extend it.
type Engine struct {
	transport  chat.Transport
	window     *window.Store
	pager      *pagination.Controller
	tracker    *outbox.Tracker
	failed     *failcache.Cache
	reconciler *Reconciler
	bus        *bus.Bus
	logger     *zap.Logger

	mu      gosync.RWMutex
	userID  string
	loading bool
}

// NewEngine creates an engine with no channel selected. r may be nil, in
// which case the selection is not checkpointed.
func NewEngine(t chat.Transport, failed *failcache.Cache, r *Reconciler, b *bus.Bus, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := window.New()
	return &Engine{
		transport:  t,
		window:     w,
		pager:      pagination.NewController(t, w, b, logger.Named("pagination")),
		tracker:    outbox.NewTracker(t, failed, b, logger.Named("outbox")),
		failed:     failed,
		reconciler: r,
		bus:        b,
		logger:     logger,
	}
}

// Restore selects the checkpointed user and channel, falling back to the
// given defaults, and runs the initial load.
func (e *Engine) Restore(ctx context.Context, defaultChannel, defaultUser string) error {
	channelID, userID := defaultChannel, defaultUser
	if e.reconciler != nil {
		ch, u, err := e.reconciler.Selection()
		if err != nil {
			e.logger.Warn("selection checkpoint unavailable", zap.Error(err))
		}
		if ch != "" {
			channelID = ch
		}
		if u != "" {
			userID = u
		}
	}
	e.SelectUser(userID)
	if channelID == "" {
		return nil
	}
	return e.SelectChannel(ctx, channelID)
}

// SelectUser switches the sender identity. The window is unaffected.
func (e *Engine) SelectUser(userID string) {
	e.mu.Lock()
	changed := e.userID != userID
	e.userID = userID
	e.mu.Unlock()
	if !changed {
		return
	}
	e.logger.Info("user selected", zap.String("user_id", userID))
	e.checkpoint()
	e.bus.Emit(bus.KindViewChanged, nil)
}

// User returns the selected user ID.
func (e *Engine) User() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.userID
}

// ChannelID returns the selected channel ID.
func (e *Engine) ChannelID() string {
	return e.window.ChannelID()
}

// SelectChannel resets the window for channelID and loads its latest page.
// A result that arrives after another selection is discarded and reported
// as chat.ErrStale.
func (e *Engine) SelectChannel(ctx context.Context, channelID string) error {
	if channelID == "" {
		return chat.ErrNoChannel
	}

	e.mu.Lock()
	tok := e.window.ResetForChannel(channelID)
	e.pager.Reset()
	e.loading = true
	e.mu.Unlock()

	log := e.logger.With(zap.String("channel_id", channelID))
	log.Info("channel selected")
	e.checkpoint()
	e.bus.Emit(bus.KindLoading, true)
	e.bus.Emit(bus.KindViewChanged, nil)

	page, err := e.transport.FetchLatest(ctx, channelID)

	e.mu.Lock()
	current := e.window.Token() == tok
	if current {
		e.loading = false
	}
	e.mu.Unlock()

	if !current {
		log.Debug("discarding stale initial load")
		return chat.ErrStale
	}
	e.bus.Emit(bus.KindLoading, false)

	if err != nil {
		log.Warn("initial load failed", zap.Error(err))
		e.bus.Emit(bus.KindNotifyError, chat.Notification{Text: err.Error(), Level: chat.LevelError})
		e.bus.Emit(bus.KindViewChanged, nil)
		return &chat.TransportError{Op: "fetch latest", Err: err}
	}

	if err := e.window.SetWindow(tok, page); err != nil {
		if errors.Is(err, chat.ErrStale) {
			log.Debug("discarding stale initial load")
		}
		return err
	}
	log.Debug("initial load applied", zap.Int("count", len(page)))
	e.bus.Emit(bus.KindViewChanged, nil)
	return nil
}

// FetchMore extends the window of the selected channel in dir.
func (e *Engine) FetchMore(ctx context.Context, dir chat.Direction) error {
	return e.pager.FetchMore(ctx, dir)
}

// Send posts text to the selected channel as the selected user. A confirmed
// message is appended to the window if its channel is still selected. A
// failed send is returned as a Failed record with a *chat.TransportError.
func (e *Engine) Send(ctx context.Context, text string) (chat.Message, error) {
	channelID := e.window.ChannelID()
	msg, err := e.tracker.Send(ctx, channelID, e.User(), text)
	if err != nil {
		if chat.IsTransport(err) {
			e.bus.Emit(bus.KindViewChanged, nil)
		}
		return msg, err
	}

	if err := e.window.AppendSentMessage(channelID, msg); err != nil {
		e.logger.Debug("confirmed send not appended", zap.String("channel_id", channelID), zap.Error(err))
		return msg, nil
	}
	e.bus.Emit(bus.KindViewChanged, nil)
	return msg, nil
}

// Visible returns the list to render for the current selection.
func (e *Engine) Visible() []chat.Message {
	return view.ComputeVisible(e.window.Messages(), e.failed.Read(), e.window.ChannelID(), e.User())
}

// Failed returns every stored failed-send record.
func (e *Engine) Failed() []chat.Message {
	return e.failed.Read()
}

// Snapshot returns the current engine state.
func (e *Engine) Snapshot() State {
	e.mu.RLock()
	loading, userID := e.loading, e.userID
	e.mu.RUnlock()
	return State{
		ChannelID: e.window.ChannelID(),
		UserID:    userID,
		Loading:   loading,
		Older:     e.pager.State(chat.Older),
		Newer:     e.pager.State(chat.Newer),
		Sending:   e.tracker.Sending(),
		Degraded:  e.failed.Degraded(),
		Messages:  e.Visible(),
	}
}

func (e *Engine) checkpoint() {
	if e.reconciler == nil {
		return
	}
	if err := e.reconciler.SaveSelection(e.window.ChannelID(), e.User()); err != nil {
		e.logger.Warn("failed to checkpoint selection", zap.Error(err))
	}
}
