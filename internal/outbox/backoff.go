package outbox

import "time"

// backoffSchedule is the delay before the next attempt, indexed by how many
// attempts already failed. Capped rather than unbounded exponential: after
// a long outage we want items moving again within minutes, not hours.
var backoffSchedule = []time.Duration{
	5 * time.Second,
	15 * time.Second,
	45 * time.Second,
	2 * time.Minute,
	5 * time.Minute,
}

// DefaultMaxAttempts parks an item as failed after this many failed tries.
const DefaultMaxAttempts = 5

// Delay returns the backoff before retry number retryCount (1-based).
// Non-decreasing, bounded by the 5-minute ceiling.
func Delay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	if retryCount > len(backoffSchedule) {
		retryCount = len(backoffSchedule)
	}
	return backoffSchedule[retryCount-1]
}
