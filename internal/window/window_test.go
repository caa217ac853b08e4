package window

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/matheus3301/buddytalk/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func msg(id string, minutes int) chat.Message {
	return chat.Message{ID: id, SenderID: "Russell", Text: id, Timestamp: base.Add(time.Duration(minutes) * time.Minute)}
}

func ids(msgs []chat.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestSetWindowReversesNewestFirst(t *testing.T) {
	s := New()
	tok := s.ResetForChannel("1")

	require.NoError(t, s.SetWindow(tok, []chat.Message{msg("m2", 5), msg("m1", 0)}))

	got := s.Messages()
	assert.Equal(t, []string{"m1", "m2"}, ids(got))
	for _, m := range got {
		assert.Equal(t, chat.Sent, m.Status)
		assert.Equal(t, "1", m.ChannelID)
	}
}

func TestMergeOlderPagePrepends(t *testing.T) {
	s := New()
	tok := s.ResetForChannel("1")
	require.NoError(t, s.SetWindow(tok, []chat.Message{msg("m2", 5), msg("m1", 0)}))

	require.NoError(t, s.MergeOlderPage(tok, []chat.Message{msg("m0", -5)}))

	assert.Equal(t, []string{"m0", "m1", "m2"}, ids(s.Messages()))
}

func TestMergeOlderPageOverlapDropped(t *testing.T) {
	s := New()
	tok := s.ResetForChannel("1")
	require.NoError(t, s.SetWindow(tok, []chat.Message{msg("m2", 5), msg("m1", 0)}))

	require.NoError(t, s.MergeOlderPage(tok, []chat.Message{msg("m1", 0)}))

	assert.Equal(t, []string{"m1", "m2"}, ids(s.Messages()))
}

func TestMergeOlderPageReversesPage(t *testing.T) {
	s := New()
	tok := s.ResetForChannel("1")
	require.NoError(t, s.SetWindow(tok, []chat.Message{msg("m3", 10)}))

	require.NoError(t, s.MergeOlderPage(tok, []chat.Message{msg("m2", 5), msg("m1", 0), msg("m0", -5)}))

	assert.Equal(t, []string{"m0", "m1", "m2", "m3"}, ids(s.Messages()))
}

func TestMergeNewerPageAppendsAndDedupes(t *testing.T) {
	s := New()
	tok := s.ResetForChannel("1")
	require.NoError(t, s.SetWindow(tok, []chat.Message{msg("m2", 5), msg("m1", 0)}))

	require.NoError(t, s.MergeNewerPage(tok, []chat.Message{msg("m4", 15), msg("m3", 10), msg("m2", 5)}))

	assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, ids(s.Messages()))
}

func TestMergeNewerPageAcceptsAscendingPage(t *testing.T) {
	s := New()
	tok := s.ResetForChannel("1")
	require.NoError(t, s.SetWindow(tok, []chat.Message{msg("m1", 0)}))

	require.NoError(t, s.MergeNewerPage(tok, []chat.Message{msg("m2", 5), msg("m3", 10)}))

	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(s.Messages()))
}

func TestEqualTimestampsKeepArrivalOrder(t *testing.T) {
	s := New()
	tok := s.ResetForChannel("1")
	require.NoError(t, s.SetWindow(tok, []chat.Message{msg("a", 0)}))

	require.NoError(t, s.MergeNewerPage(tok, []chat.Message{msg("b", 0)}))
	require.NoError(t, s.AppendSentMessage("1", msg("c", 0)))
	require.NoError(t, s.MergeOlderPage(tok, []chat.Message{msg("z", 0)}))

	assert.Equal(t, []string{"z", "a", "b", "c"}, ids(s.Messages()))
}

func TestAppendSentMessage(t *testing.T) {
	s := New()
	tok := s.ResetForChannel("1")
	require.NoError(t, s.SetWindow(tok, []chat.Message{msg("m1", 0)}))

	sent := msg("s1", 60)
	require.NoError(t, s.AppendSentMessage("1", sent))
	require.NoError(t, s.AppendSentMessage("1", sent))

	got := s.Messages()
	assert.Equal(t, []string{"m1", "s1"}, ids(got))
	assert.Equal(t, chat.Sent, got[1].Status)
}

func TestAppendSentMessageOtherChannel(t *testing.T) {
	s := New()
	s.ResetForChannel("2")

	err := s.AppendSentMessage("1", msg("s1", 0))
	assert.ErrorIs(t, err, chat.ErrStale)
	assert.Zero(t, s.Len())
}

func TestStaleTokenRejected(t *testing.T) {
	s := New()
	old := s.ResetForChannel("1")
	s.ResetForChannel("2")

	assert.ErrorIs(t, s.SetWindow(old, []chat.Message{msg("m1", 0)}), chat.ErrStale)
	assert.ErrorIs(t, s.MergeOlderPage(old, []chat.Message{msg("m0", -1)}), chat.ErrStale)
	assert.ErrorIs(t, s.MergeNewerPage(old, []chat.Message{msg("m2", 1)}), chat.ErrStale)
	assert.Zero(t, s.Len())
}

func TestReselectSameChannelInvalidatesOldToken(t *testing.T) {
	s := New()
	first := s.ResetForChannel("1")
	second := s.ResetForChannel("1")

	assert.NotEqual(t, first, second)
	assert.ErrorIs(t, s.SetWindow(first, []chat.Message{msg("m1", 0)}), chat.ErrStale)
	assert.NoError(t, s.SetWindow(second, []chat.Message{msg("m1", 0)}))
}

func TestResetClearsWindow(t *testing.T) {
	s := New()
	tok := s.ResetForChannel("1")
	require.NoError(t, s.SetWindow(tok, []chat.Message{msg("m1", 0)}))

	tok = s.ResetForChannel("2")
	assert.Zero(t, s.Len())
	assert.Equal(t, "2", s.ChannelID())

	// IDs from the previous channel are not remembered.
	require.NoError(t, s.SetWindow(tok, []chat.Message{msg("m1", 0)}))
	assert.Equal(t, 1, s.Len())
}

func TestAnchor(t *testing.T) {
	msgs := []chat.Message{
		{ID: "m1", Status: chat.Sent},
		{ID: "m2", Status: chat.Sent},
		{ID: "f1", Status: chat.Failed},
	}

	older, ok := Anchor(msgs, chat.Older)
	require.True(t, ok)
	assert.Equal(t, "m1", older)

	newer, ok := Anchor(msgs, chat.Newer)
	require.True(t, ok)
	assert.Equal(t, "m2", newer, "failed records must never anchor")

	_, ok = Anchor(nil, chat.Older)
	assert.False(t, ok)
	_, ok = Anchor([]chat.Message{{ID: "f", Status: chat.Failed}}, chat.Newer)
	assert.False(t, ok)
}

// TestRandomMergeSequences checks the window invariants over arbitrary
// sequences of overlapping, unordered pages.
func TestRandomMergeSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		s := New()
		tok := s.ResetForChannel("1")
		for step := 0; step < 20; step++ {
			page := make([]chat.Message, rng.Intn(6))
			for i := range page {
				n := rng.Intn(40)
				page[i] = msg(fmt.Sprintf("m%d", n), n)
			}
			switch rng.Intn(4) {
			case 0:
				require.NoError(t, s.SetWindow(tok, page))
			case 1:
				require.NoError(t, s.MergeOlderPage(tok, page))
			case 2:
				require.NoError(t, s.MergeNewerPage(tok, page))
			case 3:
				for _, m := range page {
					require.NoError(t, s.AppendSentMessage("1", m))
				}
			}

			got := s.Messages()
			seen := make(map[string]bool)
			for i, m := range got {
				require.False(t, seen[m.ID], "duplicate id %s in round %d", m.ID, round)
				seen[m.ID] = true
				if i > 0 {
					require.False(t, m.Timestamp.Before(got[i-1].Timestamp), "window out of order in round %d", round)
				}
			}
		}
	}
}
