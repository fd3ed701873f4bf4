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

// Package yatp is a yet-another-thread-pool scheduler: a multilevel
// feedback-queue thread pool for mixed workloads of short bursts and long
// tasks.
//
// A ThreadPool (package pool) runs task cells pulled from a two-tier
// injector/local queue (package queue), admitting them into one of three
// priority levels that adapt over time so long-running tasks can't starve
// short ones. Two task cell flavors build on the queue primitive: a
// callback-based cell for fire-and-forget work (package task/callback) and
// a future-based cell with its own wake protocol for cooperatively
// rescheduled, multi-step work (package task/future). Package metrics
// exposes the pool's Prometheus collectors.
//
// This package itself declares no API; it exists so the module has a
// top-level package comment to anchor documentation at.
package yatp
