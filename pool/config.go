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

// Package pool implements the thread pool: configuration, the per-worker
// Local/Remote handles, the Runner lifecycle contract and the worker loop
// that drives it.
package pool

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/botobag/yatp/queue"
)

// SchedConfig tunes the scheduling algorithm. Building a pool reads
// MaxThreadCount (the pool always runs exactly that many workers), Queue,
// Multilevel and Logger. MinThreadCount, MaxInplaceSpin, MaxIdleTime,
// MaxWaitTime, WakeBackoff and AllocSlotBackoff are defaulted, and
// MinThreadCount is checked against MaxThreadCount, but nothing in the pool
// reads them; callback.Runner takes its own MaxInplaceSpin.
type SchedConfig struct {
	// MaxThreadCount is the maximum number of running threads at the same
	// time. Defaults to runtime.GOMAXPROCS(0) if zero.
	MaxThreadCount int

	// MinThreadCount is the minimum number of running threads at the same
	// time. Defaults to 1 if zero.
	MinThreadCount int

	// MaxInplaceSpin is the maximum number of times a callback task may be
	// rerun in place before being pushed back to the queue.
	MaxInplaceSpin int

	// MaxIdleTime is the maximum allowed idle time for a thread before it may
	// be considered for wake-up throttling.
	MaxIdleTime time.Duration

	// MaxWaitTime is the maximum time to wait for a task before the pool
	// would consider increasing the running thread slots.
	MaxWaitTime time.Duration

	// WakeBackoff is the minimum interval between waking a thread.
	WakeBackoff time.Duration

	// AllocSlotBackoff is the minimum interval between increasing running
	// threads.
	AllocSlotBackoff time.Duration

	// Queue selects the task queue flavor (single-level or multilevel).
	Queue queue.QueueType

	// Multilevel tunes the multilevel queue's adaptive admission, ignored
	// unless Queue is queue.Multilevel.
	Multilevel queue.MultilevelConfig

	// Logger receives panic-recovery and lifecycle diagnostics. Defaults to
	// zap.NewProduction() if nil.
	Logger *zap.Logger
}

// defaulted returns a copy of config with zero-valued fields replaced by
// their defaults: every SchedConfig field ships a sane default, so a caller
// may leave the whole struct zero-valued and still get a working pool.
func (config SchedConfig) defaulted() (SchedConfig, error) {
	if config.MaxThreadCount <= 0 {
		config.MaxThreadCount = runtime.GOMAXPROCS(0)
	}
	if config.MinThreadCount <= 0 {
		config.MinThreadCount = 1
	}
	if config.MinThreadCount > config.MaxThreadCount {
		return config, fmt.Errorf(
			"pool: MinThreadCount (%d) must not exceed MaxThreadCount (%d)",
			config.MinThreadCount, config.MaxThreadCount)
	}
	if config.MaxInplaceSpin <= 0 {
		config.MaxInplaceSpin = 4
	}
	if config.MaxIdleTime <= 0 {
		config.MaxIdleTime = time.Millisecond
	}
	if config.MaxWaitTime <= 0 {
		config.MaxWaitTime = time.Millisecond
	}
	if config.WakeBackoff <= 0 {
		config.WakeBackoff = time.Millisecond
	}
	if config.AllocSlotBackoff <= 0 {
		config.AllocSlotBackoff = 2 * time.Millisecond
	}
	if config.Logger == nil {
		logger, err := zap.NewProduction()
		if err != nil {
			return config, err
		}
		config.Logger = logger
	}
	return config, nil
}

// ErrPoolShutdown describes a pool that has begun shutting down. No function
// in this package returns it: spawning after shutdown drops the cell without
// an error.
var ErrPoolShutdown = errors.New("pool: already shut down")

// Builder configures and spawns a ThreadPool.
type Builder struct {
	namePrefix string
	config     SchedConfig
}

// NewBuilder creates a Builder using namePrefix for both thread names and
// the "pool_name" metrics label.
func NewBuilder(namePrefix string) *Builder {
	return &Builder{namePrefix: namePrefix}
}

// Config sets the scheduling configuration wholesale.
func (b *Builder) Config(config SchedConfig) *Builder {
	b.config = config
	return b
}

// MaxThreadCount sets SchedConfig.MaxThreadCount.
func (b *Builder) MaxThreadCount(count int) *Builder {
	b.config.MaxThreadCount = count
	return b
}

// MinThreadCount sets SchedConfig.MinThreadCount.
func (b *Builder) MinThreadCount(count int) *Builder {
	b.config.MinThreadCount = count
	return b
}

// MaxInplaceSpin sets SchedConfig.MaxInplaceSpin.
func (b *Builder) MaxInplaceSpin(count int) *Builder {
	b.config.MaxInplaceSpin = count
	return b
}

// Logger sets SchedConfig.Logger.
func (b *Builder) Logger(logger *zap.Logger) *Builder {
	b.config.Logger = logger
	return b
}
