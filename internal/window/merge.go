package window

import (
	"slices"

	"github.com/matheus3301/buddytalk/internal/chat"
)

// normalize turns a transport page into ascending order. Newest-first pages
// are reversed; pages already ascending are kept; anything else is
// stable-sorted within the page.
func normalize(page []chat.Message) []chat.Message {
	out := slices.Clone(page)
	switch {
	case len(out) < 2:
	case descending(out):
		slices.Reverse(out)
	case ascending(out):
	default:
		slices.SortStableFunc(out, compareTime)
	}
	return out
}

func descending(msgs []chat.Message) bool {
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp.After(msgs[i-1].Timestamp) {
			return false
		}
	}
	return true
}

func ascending(msgs []chat.Message) bool {
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp.Before(msgs[i-1].Timestamp) {
			return false
		}
	}
	return true
}

func compareTime(a, b chat.Message) int {
	return a.Timestamp.Compare(b.Timestamp)
}

// mergeStable merges two ascending lists. On equal timestamps elements of
// left come first, so arrival order decides ties.
func mergeStable(left, right []chat.Message) []chat.Message {
	if len(right) == 0 {
		return left
	}
	if len(left) == 0 {
		return right
	}
	out := make([]chat.Message, 0, len(left)+len(right))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		if right[j].Timestamp.Before(left[i].Timestamp) {
			out = append(out, right[j])
			j++
			continue
		}
		out = append(out, left[i])
		i++
	}
	out = append(out, left[i:]...)
	return append(out, right[j:]...)
}
