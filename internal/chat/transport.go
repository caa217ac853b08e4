package chat

import "context"

// Transport is the remote backend. Pages are returned newest-first.
type Transport interface {
	FetchLatest(ctx context.Context, channelID string) ([]Message, error)
	FetchMore(ctx context.Context, channelID, anchorID string, dir Direction) ([]Message, error)
	Send(ctx context.Context, channelID, userID, text string) (Message, error)
}

// Notification is a transient user-facing message, auto-dismissed by the presentation layer.
type Notification struct {
	Text  string `json:"text"`
	Level string `json:"level"`
}

// Notification levels.
const (
	LevelInfo  = "info"
	LevelError = "error"
)
