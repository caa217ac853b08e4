package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/matheus3301/buddytalk/internal/chat"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// StateView is the GetState response.
type StateView struct {
	Session     string         `json:"session"`
	ChannelID   string         `json:"channelId"`
	UserID      string         `json:"userId"`
	Loading     bool           `json:"loading"`
	Older       string         `json:"older"`
	Newer       string         `json:"newer"`
	Sending     bool           `json:"sending"`
	Degraded    bool           `json:"degraded"`
	FailedCount int            `json:"failedCount"`
	UptimeMs    int64          `json:"uptimeMs"`
	NotifyMs    int64          `json:"notifyMs"`
	Messages    []chat.Message `json:"messages"`
	Channels    []chat.Channel `json:"channels"`
	Users       []chat.User    `json:"users"`
}

// SelectChannelRequest selects the active channel and runs its initial load.
type SelectChannelRequest struct {
	ChannelID string `json:"channelId"`
}

// SelectUserRequest selects the sender identity.
type SelectUserRequest struct {
	UserID string `json:"userId"`
}

// FetchMoreRequest extends the window; Direction is "older" or "newer".
type FetchMoreRequest struct {
	Direction string `json:"direction"`
}

// SendTextRequest posts text to the active channel.
type SendTextRequest struct {
	Text string `json:"text"`
}

// ListFailedRequest filters failed-send records. Empty fields match all.
type ListFailedRequest struct {
	ChannelID string `json:"channelId,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

// WatchEventsRequest subscribes to bus events whose kind has Prefix.
type WatchEventsRequest struct {
	Prefix string `json:"prefix,omitempty"`
}

// Result reports the outcome of a command. Engine failures are reported
// here instead of as RPC errors.
type Result struct {
	Accepted bool          `json:"accepted"`
	Reason   string        `json:"reason,omitempty"`
	Message  *chat.Message `json:"message,omitempty"`
}

// FailedList is the ListFailed response.
type FailedList struct {
	Records []chat.Message `json:"records"`
}

// Envelope wraps one bus event on the WatchEvents stream.
type Envelope struct {
	EventID    string          `json:"eventId"`
	Session    string          `json:"session"`
	OccurredAt time.Time       `json:"occurredAt"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Notification decodes a notify.* payload.
func (e Envelope) Notification() (chat.Notification, bool) {
	var n chat.Notification
	if len(e.Payload) == 0 || json.Unmarshal(e.Payload, &n) != nil {
		return n, false
	}
	return n, n.Text != ""
}

// Encode converts a wire document into a Struct.
func Encode(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return s, nil
}

// Decode fills v from a Struct. A nil Struct leaves v unchanged.
func Decode(s *structpb.Struct, v any) error {
	if s == nil {
		return nil
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %T: %w", v, err)
	}
	return nil
}
