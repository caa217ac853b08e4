package bus

import "time"

// Event kinds published by the engine. Subscribers filter by prefix.
const (
	KindViewChanged     = "view.changed"
	KindPaginationOlder = "pagination.older"
	KindPaginationNewer = "pagination.newer"
	KindSendState       = "send.state"
	KindMessageSent     = "message.sent"
	KindSendFailed      = "message.send_failed"
	KindNotifyError     = "notify.error"
	KindLoading         = "view.loading"

	// NotifyPrefix matches every user-facing notification kind.
	NotifyPrefix = "notify."
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
