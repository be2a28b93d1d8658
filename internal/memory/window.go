// Package memory holds the bounded recent-turn buffer used as LLM context.
package memory

import "sync"

// TurnPair is one completed exchange: the user message and the assistant
// reply it produced.
type TurnPair struct {
	User      string
	Assistant string
}

// Window keeps the last N turn pairs of a single chat. It is scoped per chat
// and must never be shared across chats.
type Window struct {
	mu    sync.Mutex
	bound int
	pairs []TurnPair
}

// NewWindow returns a window capped at bound pairs. A bound below one is
// raised to one.
func NewWindow(bound int) *Window {
	if bound < 1 {
		bound = 1
	}
	return &Window{bound: bound}
}

// Append pushes a completed turn pair, evicting the oldest pairs first when
// the bound is exceeded.
func (w *Window) Append(pair TurnPair) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pairs = append(w.pairs, pair)
	if excess := len(w.pairs) - w.bound; excess > 0 {
		w.pairs = append(w.pairs[:0:0], w.pairs[excess:]...)
	}
}

// Snapshot returns a copy of the current window, oldest first.
func (w *Window) Snapshot() []TurnPair {
	w.mu.Lock()
	defer w.mu.Unlock()

	snapshot := make([]TurnPair, len(w.pairs))
	copy(snapshot, w.pairs)
	return snapshot
}

// Len reports the number of pairs currently held.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pairs)
}
