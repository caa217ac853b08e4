package model

import (
	"context"
	"errors"
	"sync"

	"github.com/matheus3301/buddytalk/internal/api"
	"github.com/matheus3301/buddytalk/internal/chat"
)

// ErrSendPending rejects paging while a send is outstanding.
var ErrSendPending = errors.New("wait for the send to finish")

// Daemon is the subset of the daemon client the view model calls.
type Daemon interface {
	GetState(ctx context.Context) (*api.StateView, error)
	SelectChannel(ctx context.Context, channelID string) (*api.Result, error)
	SelectUser(ctx context.Context, userID string) (*api.Result, error)
	FetchMore(ctx context.Context, direction string) (*api.Result, error)
	SendText(ctx context.Context, text string) (*api.Result, error)
}

// ViewModel caches the daemon's state and signals UI refreshes.
type ViewModel struct {
	mu    sync.RWMutex
	d     Daemon
	state *api.StateView
	Flash Flash

	refreshCh chan struct{}
}

// NewViewModel creates a view model backed by d.
func NewViewModel(d Daemon) *ViewModel {
	return &ViewModel{
		d:         d,
		refreshCh: make(chan struct{}, 1),
	}
}

// RefreshCh returns the channel that signals UI refresh.
func (vm *ViewModel) RefreshCh() <-chan struct{} {
	return vm.refreshCh
}

func (vm *ViewModel) signalRefresh() {
	select {
	case vm.refreshCh <- struct{}{}:
	default:
	}
}

// Refresh replaces the cached state with the daemon's snapshot.
func (vm *ViewModel) Refresh(ctx context.Context) error {
	st, err := vm.d.GetState(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.state = st
	vm.mu.Unlock()
	vm.signalRefresh()
	return nil
}

// SelectChannel switches the active channel and refreshes.
func (vm *ViewModel) SelectChannel(ctx context.Context, channelID string) error {
	return vm.command(ctx, func() (*api.Result, error) { return vm.d.SelectChannel(ctx, channelID) })
}

// SelectUser switches the sender identity and refreshes.
func (vm *ViewModel) SelectUser(ctx context.Context, userID string) error {
	return vm.command(ctx, func() (*api.Result, error) { return vm.d.SelectUser(ctx, userID) })
}

// FetchMore extends the window in direction and refreshes. Paging is refused
// while the last snapshot shows a send in flight.
func (vm *ViewModel) FetchMore(ctx context.Context, direction string) error {
	if st := vm.State(); st != nil && st.Sending {
		return ErrSendPending
	}
	return vm.command(ctx, func() (*api.Result, error) { return vm.d.FetchMore(ctx, direction) })
}

// SendText posts text to the active channel and refreshes. A rejected send
// still refreshes so a failed-send record shows up in place.
func (vm *ViewModel) SendText(ctx context.Context, text string) error {
	return vm.command(ctx, func() (*api.Result, error) { return vm.d.SendText(ctx, text) })
}

func (vm *ViewModel) command(ctx context.Context, call func() (*api.Result, error)) error {
	res, err := call()
	if err != nil {
		return err
	}
	refreshErr := vm.Refresh(ctx)
	if !res.Accepted {
		return errors.New(res.Reason)
	}
	return refreshErr
}

// State returns the cached snapshot, or nil before the first refresh.
func (vm *ViewModel) State() *api.StateView {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.state
}

// Messages returns the visible messages of the cached snapshot.
func (vm *ViewModel) Messages() []chat.Message {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.state == nil {
		return nil
	}
	return vm.state.Messages
}

// ChannelName resolves the active channel's display name.
func (vm *ViewModel) ChannelName() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	if vm.state == nil {
		return ""
	}
	for _, c := range vm.state.Channels {
		if c.ID == vm.state.ChannelID {
			return c.Name
		}
	}
	return vm.state.ChannelID
}
