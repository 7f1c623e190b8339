package api

import (
	"strconv"
	"sync/atomic"
	"time"
)

var (
	lastTimestamp int64
)

// nextTimestamp returns a strictly increasing nanosecond timestamp shared by
// all goroutines, so values derived from it are never reused within the
// process lifetime.
func nextTimestamp() int64 {
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastTimestamp)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastTimestamp, last, now) {
			return now
		}
	}
}

const displayCodePrefix = "AUTO-"

// newDisplayCode assigns the human-facing task label. Codes are immutable
// once assigned and never repeat, even after the task is deleted.
func newDisplayCode() string {
	return displayCodePrefix + strconv.FormatInt(nextTimestamp(), 36)
}
