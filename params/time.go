package params

import "time"

// DeadlineTime converts a payload deadline, expressed as a Unix second
// timestamp, to time.Time.
func DeadlineTime(deadline uint64) time.Time {
	return time.Unix(int64(deadline), 0)
}
