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

package future

import "github.com/botobag/yatp/concurrent/future"

// WaitAll returns a future that polls every one of fs concurrently and
// completes once all of them have, collecting their results in the same
// order as fs. Embed it as a step inside a larger hand-written Future the
// same way Reschedule is embedded, so a single TaskCell can fan out over
// several independent sub-operations (for example, concurrent sub-requests
// issued from the same task) instead of spawning one TaskCell per
// sub-future and coordinating them by hand.
func WaitAll(fs ...future.Future) future.Future {
	return future.Join(fs...)
}
