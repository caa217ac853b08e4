package failcache

import (
	"testing"
	"time"

	"github.com/matheus3301/buddytalk/internal/chat"
	"github.com/stretchr/testify/assert"
)

func rec(id, text string) chat.Message {
	return chat.Message{
		ID: id, SenderID: "Russell", ChannelID: "1", Text: text,
		Timestamp: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), Status: chat.Failed,
	}
}

func recIDs(msgs []chat.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		existing []chat.Message
		incoming []chat.Message
		want     []string
	}{
		{"both empty", nil, nil, []string{}},
		{"existing empty", nil, []chat.Message{rec("a", "x")}, []string{"a"}},
		{"incoming empty", []chat.Message{rec("a", "x")}, nil, []string{"a"}},
		{"disjoint", []chat.Message{rec("a", "x")}, []chat.Message{rec("b", "y")}, []string{"a", "b"}},
		{"overlap keeps order", []chat.Message{rec("a", "x"), rec("b", "y")}, []chat.Message{rec("b", "y"), rec("c", "z")}, []string{"a", "b", "c"}},
		{"duplicates within incoming", nil, []chat.Message{rec("a", "x"), rec("a", "x")}, []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.existing, tt.incoming)
			assert.Equal(t, tt.want, recIDs(got))
		})
	}
}

func TestMergeFirstWriteWins(t *testing.T) {
	existing := []chat.Message{rec("a", "original")}
	got := Merge(existing, []chat.Message{rec("a", "overwrite attempt")})

	assert.Len(t, got, 1)
	assert.Equal(t, "original", got[0].Text)
}

func TestMergeIdempotent(t *testing.T) {
	existing := []chat.Message{rec("a", "x"), rec("b", "y")}
	incoming := []chat.Message{rec("b", "y"), rec("c", "z")}

	once := Merge(existing, incoming)
	twice := Merge(once, incoming)

	assert.Equal(t, once, twice)
}

func TestMergePreservesEveryIDOnce(t *testing.T) {
	existing := []chat.Message{rec("a", ""), rec("b", ""), rec("c", "")}
	incoming := []chat.Message{rec("c", ""), rec("d", ""), rec("a", ""), rec("e", "")}

	got := Merge(existing, incoming)

	counts := make(map[string]int)
	for _, m := range got {
		counts[m.ID]++
	}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		assert.Equal(t, 1, counts[id], "id %s", id)
	}
	assert.Len(t, got, 5)
}
