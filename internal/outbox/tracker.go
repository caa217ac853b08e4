// Package outbox tracks the single outstanding send and keeps failed sends
// in the durable failure cache.
package outbox

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/buddytalk/internal/bus"
	"github.com/matheus3301/buddytalk/internal/chat"
	"github.com/matheus3301/buddytalk/internal/failcache"
	"github.com/matheus3301/buddytalk/internal/status"
	"go.uber.org/zap"
)

// TextSender is the part of the transport used to post messages.
type TextSender interface {
	Send(ctx context.Context, channelID, userID, text string) (chat.Message, error)
}

// FailedIDPrefix marks identifiers synthesized for failed sends.
const FailedIDPrefix = "failed-"

// Tracker serializes sends and records the ones the server never confirmed.
type Tracker struct {
	sender TextSender
	cache  *failcache.Cache
	bus    *bus.Bus
	logger *zap.Logger

	mu      sync.Mutex
	machine *status.Machine

	now   func() time.Time
	newID func() string
}

// NewTracker creates an Idle tracker writing failures to cache.
func NewTracker(sender TextSender, cache *failcache.Cache, b *bus.Bus, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		sender:  sender,
		cache:   cache,
		bus:     b,
		logger:  logger,
		machine: status.NewMachine(bus.KindSendState, status.Idle, status.SendTransitions, b),
		now:     time.Now,
		newID:   func() string { return FailedIDPrefix + uuid.NewString() },
	}
}

// Sending reports whether a send is unresolved.
func (t *Tracker) Sending() bool {
	return t.machine.Is(status.Sending)
}

// State returns the send machine state.
func (t *Tracker) State() status.State {
	return t.machine.Current()
}

func (t *Tracker) begin() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.machine.Transition(status.Sending); err != nil {
		return chat.ErrSendInFlight
	}
	return nil
}

func (t *Tracker) end() {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.machine.Transition(status.Idle)
}

// Send posts text to channelID as userID.
//
// Blank text and a send while another is unresolved are rejected before the
// transport is called. On success the confirmed message is returned with
// Status Sent. On failure a FailedSendRecord is written to the cache and
// returned together with a *chat.TransportError.
func (t *Tracker) Send(ctx context.Context, channelID, userID, text string) (chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		return chat.Message{}, chat.ErrEmptyText
	}
	if channelID == "" {
		return chat.Message{}, chat.ErrNoChannel
	}
	if err := t.begin(); err != nil {
		t.logger.Debug("send rejected, already in flight", zap.String("channel_id", channelID))
		return chat.Message{}, err
	}

	log := t.logger.With(zap.String("channel_id", channelID), zap.String("user_id", userID))
	msg, err := t.sender.Send(ctx, channelID, userID, text)
	t.end()

	if err != nil {
		rec := chat.Message{
			ID:        t.newID(),
			SenderID:  userID,
			ChannelID: channelID,
			Text:      text,
			Timestamp: t.now(),
			Status:    chat.Failed,
		}
		log.Error("failed to send message", zap.Error(err), zap.String("record_id", rec.ID))
		if perr := t.cache.Write(rec); perr != nil {
			log.Warn("failed send kept in memory only", zap.Error(perr))
		}
		t.bus.Emit(bus.KindNotifyError, chat.Notification{Text: err.Error(), Level: chat.LevelError})
		t.bus.Emit(bus.KindSendFailed, rec)
		return rec, &chat.TransportError{Op: "send", Err: err}
	}

	if msg.ChannelID == "" {
		msg.ChannelID = channelID
	}
	if msg.SenderID == "" {
		msg.SenderID = userID
	}
	msg.Status = chat.Sent
	log.Info("message sent", zap.String("message_id", msg.ID))
	t.bus.Emit(bus.KindMessageSent, msg)
	return msg, nil
}
