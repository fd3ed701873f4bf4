/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package glocal provides a goroutine-local scratch slot.
//
// Go deliberately has no thread_local/goroutine-local storage. This package
// fills the one narrow gap the scheduler needs it for: while a worker
// goroutine is inside Runner.Handle, a waker fired synchronously from that
// same goroutine (the common case: a task wakes itself before returning
// Pending) must be routed straight back onto the calling worker's own local
// queue instead of the shared injector, without either goroutine threading
// an extra parameter through every intervening call.
//
// The goroutine id is recovered by parsing the header line of
// runtime.Stack's output, the same well-known (if inelegant) technique long
// used by goroutine-aware debugging and profiling tools; it costs one small
// stack walk per Enter, Leave and Current call, so a wake that consults
// Current pays one as well.
package glocal

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

var (
	mu   sync.Mutex
	slot = map[int64]interface{}{}
)

// goroutineID parses "goroutine 123 [running]:" off the current goroutine's
// stack trace header.
func goroutineID() int64 {
	buf := make([]byte, 64)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}

	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	i := bytes.IndexByte(buf, ' ')
	if i < 0 {
		return -1
	}
	id, err := strconv.ParseInt(string(buf[:i]), 10, 64)
	if err != nil {
		return -1
	}
	return id
}

// Enter records value as the calling goroutine's scratch value. Must be
// paired with a later Leave call from the same goroutine before it returns.
func Enter(value interface{}) {
	gid := goroutineID()
	mu.Lock()
	slot[gid] = value
	mu.Unlock()
}

// Current returns the calling goroutine's scratch value set by the nearest
// enclosing Enter, and true if one is set. Safe to call from any goroutine;
// a goroutine with no Enter in its call stack gets (nil, false).
func Current() (interface{}, bool) {
	gid := goroutineID()
	mu.Lock()
	v, ok := slot[gid]
	mu.Unlock()
	return v, ok
}

// Leave clears the calling goroutine's scratch value.
func Leave() {
	gid := goroutineID()
	mu.Lock()
	delete(slot, gid)
	mu.Unlock()
}
