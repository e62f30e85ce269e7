package syncx

import "time"

// RFC3339 converts Unix milliseconds to RFC3339 timestamp string
func RFC3339(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}

// NowMs returns current Unix milliseconds timestamp (UTC)
func NowMs() int64 {
	return time.Now().UTC().UnixMilli()
}

// Millis converts a millisecond count from configuration into a duration
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
