// Package window holds the ordered in-memory message window of the selected channel.
package window

import (
	"slices"
	"sync"

	"github.com/matheus3301/buddytalk/internal/chat"
)

// Token identifies one selection of a channel. Every reset produces a new token,
// so a page fetched for an earlier selection can be recognized and dropped.
type Token struct {
	ChannelID string
	Epoch     uint64
}

// Store is the canonical window: Sent messages of one channel, ascending by
// timestamp, unique by ID.
type Store struct {
	mu    sync.RWMutex
	tok   Token
	msgs  []chat.Message
	index map[string]struct{}
}

// New creates an empty store with no channel selected.
func New() *Store {
	return &Store{index: make(map[string]struct{})}
}

// ResetForChannel clears the window and starts a new selection.
func (s *Store) ResetForChannel(channelID string) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = Token{ChannelID: channelID, Epoch: s.tok.Epoch + 1}
	s.msgs = nil
	s.index = make(map[string]struct{})
	return s.tok
}

// Token returns the current selection token.
func (s *Store) Token() Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tok
}

// ChannelID returns the selected channel, empty before the first reset.
func (s *Store) ChannelID() string {
	return s.Token().ChannelID
}

// SetWindow replaces the window with a newest-first server page.
func (s *Store) SetWindow(tok Token, page []chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.tok {
		return chat.ErrStale
	}
	s.msgs = nil
	s.index = make(map[string]struct{})
	s.msgs = s.admit(normalize(page))
	return nil
}

// MergeOlderPage prepends a newest-first page of messages older than the
// current earliest one. IDs already in the window are dropped.
func (s *Store) MergeOlderPage(tok Token, page []chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.tok {
		return chat.ErrStale
	}
	fresh := s.admit(normalize(page))
	// Page first: on equal timestamps the older page precedes the window.
	s.msgs = mergeStable(fresh, s.msgs)
	return nil
}

// MergeNewerPage appends a newest-first page of messages newer than the
// current latest one. IDs already in the window are dropped.
func (s *Store) MergeNewerPage(tok Token, page []chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok != s.tok {
		return chat.ErrStale
	}
	fresh := s.admit(normalize(page))
	s.msgs = mergeStable(s.msgs, fresh)
	return nil
}

// AppendSentMessage appends a just-confirmed send to the tail. The message is
// dropped with ErrStale if channelID is no longer selected.
func (s *Store) AppendSentMessage(channelID string, m chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if channelID != s.tok.ChannelID {
		return chat.ErrStale
	}
	fresh := s.admit([]chat.Message{m})
	s.msgs = mergeStable(s.msgs, fresh)
	return nil
}

// Messages returns a copy of the window.
func (s *Store) Messages() []chat.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.msgs)
}

// Len returns the number of messages in the window.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

// Anchor returns the ID to paginate from: the earliest message for Older and
// the latest Sent message for Newer.
func (s *Store) Anchor(dir chat.Direction) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Anchor(s.msgs, dir)
}

// Anchor computes the pagination anchor over any ascending message list.
// Failed records never anchor: the server has no knowledge of them.
func Anchor(msgs []chat.Message, dir chat.Direction) (string, bool) {
	switch dir {
	case chat.Older:
		if len(msgs) == 0 {
			return "", false
		}
		return msgs[0].ID, true
	case chat.Newer:
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].IsSent() {
				return msgs[i].ID, true
			}
		}
	}
	return "", false
}

// admit filters out IDs already present (or repeated within the page),
// stamps channel and status, and records the survivors in the index.
// Callers hold the write lock.
func (s *Store) admit(page []chat.Message) []chat.Message {
	out := make([]chat.Message, 0, len(page))
	for _, m := range page {
		if _, ok := s.index[m.ID]; ok {
			continue
		}
		s.index[m.ID] = struct{}{}
		if m.ChannelID == "" {
			m.ChannelID = s.tok.ChannelID
		}
		m.Status = chat.Sent
		out = append(out, m)
	}
	return out
}
