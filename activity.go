package sessionkeep

import (
	"sync/atomic"
	"time"

	"github.com/sessionkeep/sessionkeep/internal/clock"
)

// ActivityKind names the recognized user interaction events. All kinds are
// weighted equally; the set exists so embedders wire the right UI hooks and
// so audit metadata can say which interaction kept a session alive.
type ActivityKind uint8

const (
	// ActivityPointerPress is a mouse or pen button press.
	ActivityPointerPress ActivityKind = iota
	// ActivityPointerMove is pointer movement.
	ActivityPointerMove
	// ActivityKeyPress is a keyboard press.
	ActivityKeyPress
	// ActivityScroll is a wheel or trackpad scroll.
	ActivityScroll
	// ActivityTouchStart is the start of a touch gesture.
	ActivityTouchStart
	// ActivityClick is a completed click or tap.
	ActivityClick
	// ActivityFocus is the application or an input gaining focus.
	ActivityFocus
)

func (k ActivityKind) String() string {
	switch k {
	case ActivityPointerPress:
		return "pointer_press"
	case ActivityPointerMove:
		return "pointer_move"
	case ActivityKeyPress:
		return "key_press"
	case ActivityScroll:
		return "scroll"
	case ActivityTouchStart:
		return "touch_start"
	case ActivityClick:
		return "click"
	case ActivityFocus:
		return "focus"
	default:
		return "unknown"
	}
}

// activityTracker keeps the instant of the most recent interaction as a
// single atomic scalar. Pure bookkeeping, no error conditions.
type activityTracker struct {
	clk  clock.Clock
	last atomic.Int64 // unix nanoseconds
}

func newActivityTracker(clk clock.Clock) *activityTracker {
	t := &activityTracker{clk: clk}
	t.reset()
	return t
}

// reset stamps the tracker with "now", as at keeper start.
func (t *activityTracker) reset() {
	t.last.Store(t.clk.Now().UnixNano())
}

func (t *activityTracker) record() {
	t.last.Store(t.clk.Now().UnixNano())
}

func (t *activityTracker) since() time.Duration {
	return t.clk.Now().Sub(time.Unix(0, t.last.Load()))
}

func (t *activityTracker) isActive(idleThreshold time.Duration) bool {
	return t.since() < idleThreshold
}
