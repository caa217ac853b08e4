// Package failcache owns the durable record of failed sends. Every mutation
// goes through Merge: records are only ever added, first write wins per ID.
package failcache

import "github.com/matheus3301/buddytalk/internal/chat"

// Merge combines existing records with incoming ones, deduplicating by ID.
// The first occurrence of an ID wins and relative order is preserved.
func Merge(existing, incoming []chat.Message) []chat.Message {
	if len(existing) == 0 {
		if len(incoming) == 0 {
			return []chat.Message{}
		}
		return dedupe(incoming)
	}
	if len(incoming) == 0 {
		return existing
	}

	merged := make([]chat.Message, 0, len(existing)+len(incoming))
	merged = append(merged, existing...)
	merged = append(merged, incoming...)
	return dedupe(merged)
}

func dedupe(msgs []chat.Message) []chat.Message {
	seen := make(map[string]struct{}, len(msgs))
	out := make([]chat.Message, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}
