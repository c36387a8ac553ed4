package utils

import "sync/atomic"

// AtomicBool is a bool that can be read and written from multiple
// goroutines without a lock, mirroring the teacher's utils.AtomicBool.
type AtomicBool struct {
	v int32
}

// Set stores value.
func (a *AtomicBool) Set(value bool) {
	if value {
		atomic.StoreInt32(&a.v, 1)
	} else {
		atomic.StoreInt32(&a.v, 0)
	}
}

// Get loads the current value.
func (a *AtomicBool) Get() bool {
	return atomic.LoadInt32(&a.v) != 0
}
