// Package view composes the list the presentation layer renders.
package view

import (
	"slices"

	"github.com/matheus3301/buddytalk/internal/chat"
)

// ComputeVisible returns the window plus the failed sends of userID in
// channelID, stable-sorted ascending by timestamp.
func ComputeVisible(window, failed []chat.Message, channelID, userID string) []chat.Message {
	out := make([]chat.Message, 0, len(window)+len(failed))
	out = append(out, window...)
	for _, m := range failed {
		if m.ChannelID == channelID && m.SenderID == userID {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b chat.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return out
}
