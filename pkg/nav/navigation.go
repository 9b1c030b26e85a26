package nav

import (
	"sync"

	"github.com/waypoint-dev/waypoint/v2/pkg/route"
)

// Navigation is one live entry on a history stack. It is created by the
// Navigator when a target resolves and stays immutable afterwards,
// except for its one-shot result delivery.
type Navigation struct {
	// Data is the resolved route data for this navigation.
	Data *route.Data

	// Entry is the matched registry entry; nil for a not-found fallback.
	Entry *route.Entry

	// View is the value the entry's builder produced, passed through
	// untouched.
	View route.View

	// Transition is the transition descriptor chosen for this
	// navigation: the per-call override if given, else the entry's
	// TransitionKey, else the navigator's default.
	Transition string

	resultOnce sync.Once
	result     chan any
}

func newNavigation(data *route.Data, entry *route.Entry, transition string) *Navigation {
	return &Navigation{
		Data:       data,
		Entry:      entry,
		Transition: transition,
		result:     make(chan any, 1),
	}
}

// Result returns a channel that receives at most one value: the result
// handed to Pop when this navigation is popped. The channel is closed
// after delivery, and closed without a value when the navigation is
// replaced or removed without a result.
func (n *Navigation) Result() <-chan any {
	return n.result
}

// deliver completes the navigation with a result. Safe to call more
// than once; only the first call wins.
func (n *Navigation) deliver(v any) {
	n.resultOnce.Do(func() {
		if v != nil {
			n.result <- v
		}
		close(n.result)
	})
}
