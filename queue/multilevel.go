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

package queue

import (
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// Promotion/demotion thresholds: a task that has accumulated less than
// levelUpThreshold of total running time is pushed back to Level0 on its next
// schedule; past levelDownThreshold it is pushed down to Level2. Between the
// two it settles into Level1.
const (
	levelUpThreshold   = 5 * time.Millisecond
	levelDownThreshold = 100 * time.Millisecond
)

// Default adaptive-admission tuning, applied once per adjustInterval.
const (
	defaultTargetLevel0Ratio = 0.8
	defaultAdjustStep        = 0.05
	minChance                = 0.01
	maxChance                = 0.99
	adjustInterval           = time.Second

	// level1FavorWeight is the probability of trying Level1 before Level2
	// once the admission chance has decided to favor the lower levels over
	// Level0, a 4:1 weighting toward Level1.
	level1FavorWeight = 0.8
)

// MultilevelConfig tunes a multilevel queue's adaptive Level0 admission. The
// zero value is usable and selects the defaults above.
type MultilevelConfig struct {
	// TargetLevel0Ratio is the fraction of polls the queue tries to keep
	// coming from Level0 by adjusting admission chance for Level1/Level2
	// tasks that would otherwise starve it.
	TargetLevel0Ratio float64

	// AdjustStep is how much the admission chance moves per adjustInterval
	// tick when the observed ratio misses the target.
	AdjustStep float64

	// OnChanceUpdated, if set, is called with the new admission chance every
	// time tick recomputes it, so a caller can mirror it into a metric.
	OnChanceUpdated func(chance float64)

	// OnLevelElapsed, if set, is called every time a task finishes running,
	// with the level it ran at and the seconds just spent running it, so a
	// caller can mirror it into a metric.
	OnLevelElapsed func(level string, seconds float64)
}

func (c MultilevelConfig) targetRatio() float64 {
	if c.TargetLevel0Ratio <= 0 {
		return defaultTargetLevel0Ratio
	}
	return c.TargetLevel0Ratio
}

func (c MultilevelConfig) adjustStep() float64 {
	if c.AdjustStep <= 0 {
		return defaultAdjustStep
	}
	return c.AdjustStep
}

// levelManager owns the three per-level injectors, the classification of
// tasks between them, and the adaptive chance of admitting a Level1/Level2
// task ahead of Level0 on a given poll.
type levelManager[T TaskCell] struct {
	injectors [levelCount]*Injector[T]

	// chanceBits is an atomically-updated float64, bit-cast into a uint64, the
	// probability that a poll favors Level1/Level2 over Level0. Packing the
	// float as a single atomic word mirrors the run-state-plus-worker-count
	// packing the pool executor uses elsewhere for a different pair of
	// fields.
	chanceBits uint64

	l0ElapsedNanos    int64 // nanoseconds run from Level0 since the last tick
	otherElapsedNanos int64 // nanoseconds run from Level1/Level2 since the last tick

	config MultilevelConfig

	// parkMu/parkCond back popOrSleep: a worker that finds all three levels
	// empty parks here instead of on any single injector's own registry, so
	// a push to any level wakes it.
	parkMu   sync.Mutex
	parkCond *sync.Cond
	parked   int
	closed   bool

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newLevelManager[T TaskCell](config MultilevelConfig) *levelManager[T] {
	m := &levelManager[T]{
		config: config,
		stopCh: make(chan struct{}),
	}
	m.parkCond = sync.NewCond(&m.parkMu)
	for i := range m.injectors {
		m.injectors[i] = NewInjector[T]()
	}
	m.storeChance(config.adjustStep())
	go m.adjustLoop()
	return m
}

func (m *levelManager[T]) storeChance(c float64) {
	atomic.StoreUint64(&m.chanceBits, math.Float64bits(c))
}

func (m *levelManager[T]) chance() float64 {
	return math.Float64frombits(atomic.LoadUint64(&m.chanceBits))
}

// adjustLoop periodically nudges the admission chance toward the configured
// Level0 ratio target, running off its own ticker rather than recomputing
// on every single poll.
func (m *levelManager[T]) adjustLoop() {
	ticker := time.NewTicker(adjustInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.tick()
		case <-m.stopCh:
			return
		}
	}
}

// recordElapsed adds d to the running total this level has accumulated
// since the last tick, and reports it to the process-wide per-level metric.
// tick later compares L0's share of this total against a target ratio to
// adjust the admission chance.
func (m *levelManager[T]) recordElapsed(level Level, d time.Duration) {
	if level == Level0 {
		atomic.AddInt64(&m.l0ElapsedNanos, int64(d))
	} else {
		atomic.AddInt64(&m.otherElapsedNanos, int64(d))
	}
	if m.config.OnLevelElapsed != nil {
		m.config.OnLevelElapsed(level.String(), d.Seconds())
	}
}

func (m *levelManager[T]) tick() {
	l0 := atomic.SwapInt64(&m.l0ElapsedNanos, 0)
	other := atomic.SwapInt64(&m.otherElapsedNanos, 0)
	total := l0 + other
	if total == 0 {
		return
	}

	observedL0Ratio := float64(l0) / float64(total)
	target := m.config.targetRatio()
	step := m.config.adjustStep()
	chance := m.chance()

	if observedL0Ratio < target {
		// Level0 is being starved: favor it more by lowering the chance an
		// L1/L2 task preempts it.
		chance -= step
	} else if observedL0Ratio > target {
		chance += step
	}

	if chance < minChance {
		chance = minChance
	} else if chance > maxChance {
		chance = maxChance
	}
	m.storeChance(chance)
	if m.config.OnChanceUpdated != nil {
		m.config.OnChanceUpdated(chance)
	}
}

func (m *levelManager[T]) stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// classify assigns or updates cell's current level based on its fixed level
// override, if any, else its accumulated running time.
func (m *levelManager[T]) classify(cell T) Level {
	extras := cell.MutExtras()
	if extras.FixedLevel != nil {
		extras.CurrentLevel = *extras.FixedLevel
		return extras.CurrentLevel
	}

	// TotalRunningDuration is the single source of truth for promotion; it is
	// mutated only by the worker that currently owns the task (see Finish),
	// so no lock is needed to read it here between runs. RunningTime mirrors
	// the same total behind an atomic for any concurrent reader (e.g. a
	// Stats snapshot) that must not race the owner.
	total := extras.TotalRunningDuration

	switch {
	case total < levelUpThreshold:
		extras.CurrentLevel = Level0
	case total < levelDownThreshold:
		extras.CurrentLevel = Level1
	default:
		extras.CurrentLevel = Level2
	}
	return extras.CurrentLevel
}

func (m *levelManager[T]) push(cell T) bool {
	level := m.classify(cell)
	ok := m.injectors[level].Push(cell)
	if ok {
		m.parkMu.Lock()
		shouldSignal := m.parked > 0
		m.parkMu.Unlock()
		if shouldSignal {
			m.parkCond.Signal()
		}
	}
	return ok
}

// popFavoring removes one cell. It first tries a single biased pick: Level0
// with probability 1-chance(), or otherwise Level1 and Level2 weighted 4:1
// toward Level1; then, regardless of whether that pick hit or missed, it
// falls back to a strict Level0, Level1, Level2 scan so no non-empty level
// is ever skipped.
func (m *levelManager[T]) popFavoring(rng *rand.Rand) (T, bool) {
	if rng.Float64() >= m.chance() {
		if cell, ok := m.injectors[Level0].TryPop(); ok {
			return cell, true
		}
	} else if rng.Float64() < level1FavorWeight {
		if cell, ok := m.injectors[Level1].TryPop(); ok {
			return cell, true
		}
	} else {
		if cell, ok := m.injectors[Level2].TryPop(); ok {
			return cell, true
		}
	}

	for _, lvl := range [levelCount]Level{Level0, Level1, Level2} {
		if cell, ok := m.injectors[lvl].TryPop(); ok {
			return cell, true
		}
	}
	var zero T
	return zero, false
}

// popOrSleepFavoring behaves like popFavoring, but if every level is
// currently empty it parks the calling worker until a push to any level (or
// close) wakes it, then retries.
func (m *levelManager[T]) popOrSleepFavoring(rng *rand.Rand) (T, bool) {
	for {
		if cell, ok := m.popFavoring(rng); ok {
			return cell, true
		}

		m.parkMu.Lock()
		if m.closed {
			m.parkMu.Unlock()
			var zero T
			return zero, false
		}
		m.parked++
		m.parkCond.Wait()
		m.parked--
		closed := m.closed
		m.parkMu.Unlock()
		if closed {
			// Drain once more before giving up: Close may have raced a
			// last-moment push.
			if cell, ok := m.popFavoring(rng); ok {
				return cell, true
			}
			var zero T
			return zero, false
		}
	}
}

func (m *levelManager[T]) empty() bool {
	for _, inj := range m.injectors {
		if !inj.Empty() {
			return false
		}
	}
	return true
}

func (m *levelManager[T]) close() {
	for _, inj := range m.injectors {
		inj.Close()
	}
	m.parkMu.Lock()
	m.closed = true
	m.parkMu.Unlock()
	m.parkCond.Broadcast()
	m.stop()
}

// multilevelRoot implements RootQueue over a levelManager. Injected tasks
// default to Level0 unless they carry a FixedLevel override.
type multilevelRoot[T TaskCell] struct {
	manager *levelManager[T]
}

// NewMultilevel creates a RootQueue that classifies tasks into three
// elapsed-time based priority levels with adaptive Level0 admission, plus
// nLocals per-worker Consumers over it.
func NewMultilevel[T TaskCell](nLocals int, config MultilevelConfig) (RootQueue[T], []Consumer[T]) {
	manager := newLevelManager[T](config)
	root := &multilevelRoot[T]{manager: manager}

	consumers := make([]Consumer[T], nLocals)
	for i := range consumers {
		spill := func(cell T) { manager.push(cell) }
		consumers[i] = &multilevelConsumer[T]{
			manager: manager,
			local:   NewLocalQueue[T](defaultLocalQueueCapacity, spill),
			rng:     rand.New(rand.NewSource(int64(i) + 1)),
		}
	}
	return root, consumers
}

func (r *multilevelRoot[T]) Inject(cell T) bool { return r.manager.push(cell) }
func (r *multilevelRoot[T]) Close()             { r.manager.close() }
func (r *multilevelRoot[T]) Empty() bool        { return r.manager.empty() }

// AdjustChance implements LevelStats.
func (r *multilevelRoot[T]) AdjustChance() float64 { return r.manager.chance() }

// LevelLen implements LevelStats.
func (r *multilevelRoot[T]) LevelLen(level Level) int {
	return r.manager.injectors[level].Len()
}

// multilevelConsumer is the per-worker view over a levelManager: one local
// queue, plus a private rng so the admission coin flip doesn't contend
// across workers.
type multilevelConsumer[T TaskCell] struct {
	manager *levelManager[T]
	local   *LocalQueue[T]
	rng     *rand.Rand

	mu sync.Mutex
}

func (c *multilevelConsumer[T]) PushLocal(cell T) {
	c.local.PushOwner(cell)
}

func (c *multilevelConsumer[T]) PopLocal() (Pop[T], bool) {
	cell, ok := c.local.Pop()
	if !ok {
		return Pop[T]{}, false
	}
	return Pop[T]{TaskCell: cell, FromLocal: true}, true
}

func (c *multilevelConsumer[T]) PopOrSleep() (Pop[T], bool) {
	if cell, ok := c.local.Pop(); ok {
		return Pop[T]{TaskCell: cell, FromLocal: true}, true
	}

	// rand.Rand is not safe for concurrent use; this consumer is only ever
	// driven by its owning worker, but PopOrSleep and NeedPreempt may race
	// against each other via a test harness, so guard the rng.
	c.mu.Lock()
	cell, ok := c.manager.popOrSleepFavoring(c.rng)
	c.mu.Unlock()
	if !ok {
		var zero Pop[T]
		return zero, false
	}
	return Pop[T]{TaskCell: cell, FromLocal: false}, true
}

// NeedPreempt reports whether work is waiting at Level0 that this worker, if
// it is currently running a lower-priority task, should yield for.
func (c *multilevelConsumer[T]) NeedPreempt() bool {
	return !c.manager.injectors[Level0].Empty()
}

// Finish implements Consumer. It accumulates elapsed into the task's own
// running-time totals, consulted by classify on the next push to decide
// whether the task has earned a promotion or demotion, and into the
// process-wide counter for the level the task actually ran at this episode.
func (c *multilevelConsumer[T]) Finish(cell T, elapsed time.Duration) {
	extras := cell.MutExtras()
	extras.TotalRunningDuration += elapsed
	if extras.RunningTime == nil {
		extras.RunningTime = &ElapsedMonitor{}
	}
	extras.RunningTime.Add(elapsed)
	c.manager.recordElapsed(extras.CurrentLevel, elapsed)
}
