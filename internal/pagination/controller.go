// Package pagination drives fetch-more requests in both directions of the window.
package pagination

import (
	"context"
	"errors"
	"sync"

	"github.com/matheus3301/buddytalk/internal/bus"
	"github.com/matheus3301/buddytalk/internal/chat"
	"github.com/matheus3301/buddytalk/internal/status"
	"github.com/matheus3301/buddytalk/internal/window"
	"go.uber.org/zap"
)

// Fetcher is the part of the transport the controller needs.
type Fetcher interface {
	FetchMore(ctx context.Context, channelID, anchorID string, dir chat.Direction) ([]chat.Message, error)
}

// Controller keeps at most one fetch in flight per direction.
type Controller struct {
	fetcher Fetcher
	window  *window.Store
	bus     *bus.Bus
	logger  *zap.Logger

	mu    sync.Mutex
	gen   uint64
	older *status.Machine
	newer *status.Machine
}

// NewController creates a controller with both directions Idle.
func NewController(f Fetcher, w *window.Store, b *bus.Bus, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		fetcher: f,
		window:  w,
		bus:     b,
		logger:  logger,
		older:   status.NewMachine(bus.KindPaginationOlder, status.Idle, status.FetchTransitions, b),
		newer:   status.NewMachine(bus.KindPaginationNewer, status.Idle, status.FetchTransitions, b),
	}
}

func (c *Controller) machine(dir chat.Direction) *status.Machine {
	if dir == chat.Older {
		return c.older
	}
	return c.newer
}

// State returns the state of one direction.
func (c *Controller) State(dir chat.Direction) status.State {
	return c.machine(dir).Current()
}

// Fetching reports whether dir has a request in flight.
func (c *Controller) Fetching(dir chat.Direction) bool {
	return c.machine(dir).Is(status.Fetching)
}

// Reset returns both directions to Idle. In-flight requests started before
// the reset complete without touching the new state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.older.Reset()
	c.newer.Reset()
}

// request is one fetch-more captured under the controller lock.
type request struct {
	gen    uint64
	tok    window.Token
	anchor string
}

// begin reads the window token and anchor and moves dir to Fetching in one
// critical section, so a Reset can never pair an old channel's request with
// the new generation.
func (c *Controller) begin(dir chat.Direction) (request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tok := c.window.Token()
	if tok.ChannelID == "" {
		return request{}, chat.ErrNoChannel
	}
	anchor, ok := c.window.Anchor(dir)
	if !ok {
		return request{}, chat.ErrNoAnchor
	}
	if err := c.machine(dir).Transition(status.Fetching); err != nil {
		return request{}, chat.ErrFetchInFlight
	}
	return request{gen: c.gen, tok: tok, anchor: anchor}, nil
}

// finish returns dir to Idle and reports whether req is still current.
// A request from before a Reset leaves the machine alone.
func (c *Controller) finish(req request, dir chat.Direction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if req.gen != c.gen {
		return false
	}
	_ = c.machine(dir).Transition(status.Idle)
	return true
}

// FetchMore requests the next page in dir from the current anchor and merges
// it into the window. It returns ErrFetchInFlight without calling the
// transport when dir is already fetching. Transport failures are published
// as notifications, leave the window unchanged and return dir to Idle.
// Completions that arrive after a Reset are dropped with ErrStale.
func (c *Controller) FetchMore(ctx context.Context, dir chat.Direction) error {
	req, err := c.begin(dir)
	if errors.Is(err, chat.ErrFetchInFlight) {
		c.logger.Debug("fetch rejected, already in flight", zap.Stringer("direction", dir))
	}
	if err != nil {
		return err
	}

	log := c.logger.With(zap.String("channel_id", req.tok.ChannelID), zap.Stringer("direction", dir), zap.String("anchor", req.anchor))
	page, err := c.fetcher.FetchMore(ctx, req.tok.ChannelID, req.anchor, dir)
	if err != nil {
		if !c.finish(req, dir) {
			log.Debug("discarding stale fetch failure", zap.Error(err))
			return chat.ErrStale
		}
		log.Warn("fetch more failed", zap.Error(err))
		c.bus.Emit(bus.KindNotifyError, chat.Notification{Text: err.Error(), Level: chat.LevelError})
		return &chat.TransportError{Op: "fetch " + dir.String(), Err: err}
	}

	if dir == chat.Older {
		err = c.window.MergeOlderPage(req.tok, page)
	} else {
		err = c.window.MergeNewerPage(req.tok, page)
	}
	c.finish(req, dir)

	if errors.Is(err, chat.ErrStale) {
		log.Debug("discarding stale page", zap.Int("count", len(page)))
		return err
	}
	log.Debug("page merged", zap.Int("count", len(page)))
	c.bus.Emit(bus.KindViewChanged, nil)
	return err
}
