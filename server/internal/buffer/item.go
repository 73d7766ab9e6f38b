package buffer

import "time"

// Item is one buffered unit. Items are created by Produce and never mutated.
type Item struct {
	Value      int64
	InsertedAt time.Time
}

// age reports how long the item has been held as of now.
func (it Item) age(now time.Time) time.Duration {
	return now.Sub(it.InsertedAt)
}

// Policy is the removal policy applied by a single Consume call.
type Policy int

const (
	// PolicyNone means nothing was removed (empty container).
	PolicyNone Policy = iota
	// PolicyQueue removes the head (oldest item).
	PolicyQueue
	// PolicyStack removes the tail (newest item).
	PolicyStack
)

func (p Policy) String() string {
	switch p {
	case PolicyQueue:
		return "queue"
	case PolicyStack:
		return "stack"
	default:
		return "none"
	}
}

// PolicyFor returns the policy a consume would apply to a container holding n
// items under the given threshold. n >= threshold selects stack mode.
func PolicyFor(n, threshold int) Policy {
	switch {
	case n <= 0:
		return PolicyNone
	case n >= threshold:
		return PolicyStack
	default:
		return PolicyQueue
	}
}
