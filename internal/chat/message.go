package chat

import (
	"fmt"
	"time"
)

// Status discriminates confirmed messages from locally synthesized failed sends.
type Status string

const (
	// Sent messages come from the server or from a send acknowledgment.
	Sent Status = "Sent"
	// Failed messages were built by this client and never confirmed by the server.
	Failed Status = "Failed"
)

// Message is a single chat message. Status is the union tag: a Failed message is
// a failed-send record and must never be used as a pagination anchor.
type Message struct {
	ID        string    `json:"messageId"`
	SenderID  string    `json:"userId"`
	ChannelID string    `json:"channelId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"datetime"`
	Status    Status    `json:"status"`
}

// IsSent reports whether the message was confirmed by the server.
func (m Message) IsSent() bool { return m.Status == Sent }

// Direction selects which end of the window a page extends.
type Direction int

const (
	Older Direction = iota
	Newer
)

func (d Direction) String() string {
	switch d {
	case Older:
		return "older"
	case Newer:
		return "newer"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection accepts "older"/"newer" (and the arrow aliases "up"/"down").
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "older", "up", "previous":
		return Older, nil
	case "newer", "down", "next":
		return Newer, nil
	}
	return 0, fmt.Errorf("unknown direction %q: want older or newer", s)
}

// Channel is a named conversation users can post to.
type Channel struct {
	ID   string `toml:"id" json:"id"`
	Name string `toml:"name" json:"name"`
}

// User is a selectable sender identity.
type User struct {
	ID   string `toml:"id" json:"userId"`
	Name string `toml:"name" json:"name"`
}
