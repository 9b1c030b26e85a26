package nav

import "sync"

// DefaultHistoryLimit bounds a history stack when no limit is
// configured.
const DefaultHistoryLimit = 50

// HistoryAction categorizes a history mutation for listeners.
type HistoryAction int

const (
	HistoryPush HistoryAction = iota
	HistoryPop
	HistoryReplace
	HistoryMove
	HistoryClear
)

// HistoryEvent describes one history mutation.
type HistoryEvent struct {
	Action  HistoryAction
	Current *Navigation
	Index   int
	Length  int
}

// HistoryListener observes history mutations. Listeners run
// synchronously after the mutation, with the history unlocked, so they
// may call back into it.
type HistoryListener func(HistoryEvent)

// History is a bounded navigation stack with a cursor. Push truncates
// any forward branch past the cursor and evicts the oldest entry when
// the stack exceeds its limit; Back and Forward move the cursor without
// removing entries.
type History struct {
	mu        sync.RWMutex
	limit     int
	entries   []*Navigation
	index     int
	listeners map[int]HistoryListener
	nextSub   int
}

// NewHistory creates an empty history. A non-positive limit falls back
// to DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{
		limit:     limit,
		index:     -1,
		listeners: make(map[int]HistoryListener),
	}
}

// Push appends a navigation after the cursor, discarding any forward
// branch, and moves the cursor to it. When the stack exceeds its limit
// the oldest entry is evicted.
func (h *History) Push(n *Navigation) {
	h.mu.Lock()
	for _, dropped := range h.entries[h.index+1:] {
		dropped.deliver(nil)
	}
	h.entries = append(h.entries[:h.index+1], n)
	if len(h.entries) > h.limit {
		h.entries[0].deliver(nil)
		h.entries = h.entries[1:]
	}
	h.index = len(h.entries) - 1
	event := h.eventLocked(HistoryPush)
	h.mu.Unlock()
	h.notify(event)
}

// Pop removes the current entry (and any forward branch) and moves the
// cursor to the previous one. Removal is destructive: a popped entry
// cannot be returned to, unlike Back, which only moves the cursor.
// Pop fails when the current entry is the only one at or below the
// cursor.
func (h *History) Pop() (*Navigation, bool) {
	h.mu.Lock()
	if h.index < 1 {
		h.mu.Unlock()
		return nil, false
	}
	popped := h.entries[h.index]
	for _, dropped := range h.entries[h.index+1:] {
		dropped.deliver(nil)
	}
	h.entries = h.entries[:h.index]
	h.index--
	event := h.eventLocked(HistoryPop)
	h.mu.Unlock()
	h.notify(event)
	return popped, true
}

// PopUntil pops entries until pred holds for the current one. The
// bottom entry is never removed, so a predicate that never holds
// leaves the stack at its first entry. It returns the popped entries,
// most recent first.
func (h *History) PopUntil(pred func(*Navigation) bool) []*Navigation {
	h.mu.Lock()
	var popped []*Navigation
	for h.index >= 1 && !pred(h.entries[h.index]) {
		for _, dropped := range h.entries[h.index+1:] {
			dropped.deliver(nil)
		}
		popped = append(popped, h.entries[h.index])
		h.entries = h.entries[:h.index]
		h.index--
	}
	var event HistoryEvent
	notify := len(popped) > 0
	if notify {
		event = h.eventLocked(HistoryPop)
	}
	h.mu.Unlock()
	if notify {
		h.notify(event)
	}
	return popped
}

// ReplaceCurrent swaps the current entry for n and returns the replaced
// one. It fails on an empty history.
func (h *History) ReplaceCurrent(n *Navigation) (*Navigation, bool) {
	h.mu.Lock()
	if h.index < 0 {
		h.mu.Unlock()
		return nil, false
	}
	replaced := h.entries[h.index]
	h.entries[h.index] = n
	event := h.eventLocked(HistoryReplace)
	h.mu.Unlock()
	h.notify(event)
	return replaced, true
}

// Back moves the cursor one entry back without removing anything and
// returns the newly current entry.
func (h *History) Back() (*Navigation, bool) {
	if !h.GoToIndex(h.Index() - 1) {
		return nil, false
	}
	return h.Current()
}

// Forward moves the cursor one entry forward along a branch kept by a
// previous Back and returns the newly current entry.
func (h *History) Forward() (*Navigation, bool) {
	if !h.GoToIndex(h.Index() + 1) {
		return nil, false
	}
	return h.Current()
}

// GoToIndex moves the cursor to an absolute position.
func (h *History) GoToIndex(i int) bool {
	h.mu.Lock()
	if i < 0 || i >= len(h.entries) || i == h.index {
		h.mu.Unlock()
		return false
	}
	h.index = i
	event := h.eventLocked(HistoryMove)
	h.mu.Unlock()
	h.notify(event)
	return true
}

// Clear removes every entry.
func (h *History) Clear() {
	h.mu.Lock()
	for _, dropped := range h.entries {
		dropped.deliver(nil)
	}
	h.entries = nil
	h.index = -1
	event := h.eventLocked(HistoryClear)
	h.mu.Unlock()
	h.notify(event)
}

// Current returns the entry under the cursor.
func (h *History) Current() (*Navigation, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.index < 0 {
		return nil, false
	}
	return h.entries[h.index], true
}

// Index returns the cursor position, -1 when empty.
func (h *History) Index() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.index
}

// Len returns the number of entries, including any forward branch.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// CanPop reports whether Pop would succeed.
func (h *History) CanPop() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.index >= 1
}

// CanGoForward reports whether a forward branch exists past the cursor.
func (h *History) CanGoForward() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.index >= 0 && h.index < len(h.entries)-1
}

// Entries returns a snapshot of the stack, oldest first.
func (h *History) Entries() []*Navigation {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Navigation, len(h.entries))
	copy(out, h.entries)
	return out
}

// Subscribe registers a listener and returns its unsubscribe function.
func (h *History) Subscribe(l HistoryListener) func() {
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	h.listeners[id] = l
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.listeners, id)
		h.mu.Unlock()
	}
}

func (h *History) eventLocked(action HistoryAction) HistoryEvent {
	event := HistoryEvent{Action: action, Index: h.index, Length: len(h.entries)}
	if h.index >= 0 && h.index < len(h.entries) {
		event.Current = h.entries[h.index]
	}
	return event
}

func (h *History) notify(event HistoryEvent) {
	h.mu.RLock()
	listeners := make([]HistoryListener, 0, len(h.listeners))
	for _, l := range h.listeners {
		listeners = append(listeners, l)
	}
	h.mu.RUnlock()
	for _, l := range listeners {
		l(event)
	}
}
