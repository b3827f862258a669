// Package gid extracts the calling goroutine's runtime identifier, used to
// key the thread-local shared state of the TSLF pool variants.
package gid

import "runtime"

// Current returns the numeric id of the calling goroutine, parsed from the
// header line of runtime.Stack's output ("goroutine 123 [running]: ...").
// It is intended for use as a thread-local-style lookup key only; callers
// must not assume ids are ever reused or stable across a goroutine's
// lifetime in any other sense.
func Current() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	const prefix = "goroutine "
	if n <= len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}
	var id uint64
	for i := len(prefix); i < n; i++ {
		c := buf[i]
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}
