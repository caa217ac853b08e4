package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyText is the validation error for blank messages. It never reaches the transport.
	ErrEmptyText = errors.New("message text is empty")
	// ErrSendInFlight rejects a send while another one is unresolved.
	ErrSendInFlight = errors.New("a send is already in flight")
	// ErrFetchInFlight rejects a fetch-more while the same direction is fetching.
	ErrFetchInFlight = errors.New("a fetch is already in flight for this direction")
	// ErrNoChannel is returned when an operation needs a selected channel.
	ErrNoChannel = errors.New("no channel selected")
	// ErrNoAnchor is returned when the window has no message to paginate from.
	ErrNoAnchor = errors.New("no anchor message in window")
	// ErrStale marks a result that arrived after the selected channel changed.
	ErrStale = errors.New("result is stale for the selected channel")
)

// TransportError wraps a network or server failure of a transport call.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PersistenceError wraps a read or write failure of the durable local store.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Rejected reports whether err is a local rejection that never touched the transport.
func Rejected(err error) bool {
	return errors.Is(err, ErrEmptyText) ||
		errors.Is(err, ErrSendInFlight) ||
		errors.Is(err, ErrFetchInFlight) ||
		errors.Is(err, ErrNoChannel) ||
		errors.Is(err, ErrNoAnchor)
}
