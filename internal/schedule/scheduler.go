// Package schedule provides cancellable deferred tasks: the debounce and
// next-tick primitives used by the form and draft packages.
package schedule

import (
	"sort"
	"sync"
	"time"
)

// Handle cancels a scheduled task. Cancel reports whether the task was
// stopped before it ran.
type Handle interface {
	Cancel() bool
}

type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Handle
}

// Real runs tasks on the runtime timer.
type Real struct{}

func (Real) AfterFunc(d time.Duration, fn func()) Handle {
	return realHandle{t: time.AfterFunc(d, fn)}
}

type realHandle struct{ t *time.Timer }

func (h realHandle) Cancel() bool { return h.t.Stop() }

// Slot holds at most one pending task; scheduling a new one cancels the
// previous. It is the coalesce-to-latest primitive.
type Slot struct {
	mu     sync.Mutex
	s      Scheduler
	handle Handle
	seq    uint64
}

func NewSlot(s Scheduler) *Slot { return &Slot{s: s} }

// Replace cancels any pending task and schedules fn after d. fn is skipped
// if the slot was replaced or cancelled before it fired.
func (sl *Slot) Replace(d time.Duration, fn func()) {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.handle != nil {
		sl.handle.Cancel()
	}
	sl.seq++
	mine := sl.seq
	sl.handle = sl.s.AfterFunc(d, func() {
		sl.mu.Lock()
		live := sl.seq == mine
		if live {
			sl.handle = nil
		}
		sl.mu.Unlock()
		if live {
			fn()
		}
	})
}

// Cancel drops the pending task, if any.
func (sl *Slot) Cancel() {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.handle != nil {
		sl.handle.Cancel()
		sl.handle = nil
	}
	sl.seq++
}

// Pending reports whether a task is waiting to fire.
func (sl *Slot) Pending() bool {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.handle != nil
}

// Manual is a virtual clock for tests. Tasks fire only from Advance.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   uint64
	tasks []*manualTask
}

type manualTask struct {
	m         *Manual
	at        time.Duration
	seq       uint64
	fn        func()
	cancelled bool
	fired     bool
}

func NewManual() *Manual { return &Manual{} }

func (m *Manual) AfterFunc(d time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTask{m: m, at: m.now + d, seq: m.seq, fn: fn}
	m.tasks = append(m.tasks, t)
	return t
}

func (t *manualTask) Cancel() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.fired || t.cancelled {
		return false
	}
	t.cancelled = true
	return true
}

// Advance moves the clock forward by d and runs every task that comes due,
// in due-time order. Tasks scheduled by running tasks fire too when they fall
// inside the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.at
		next.fired = true
		m.mu.Unlock()
		next.fn()
	}
}

// Flush runs everything due now, the equivalent of waiting one tick.
func (m *Manual) Flush() { m.Advance(0) }

// Pending counts tasks that have neither fired nor been cancelled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.fired && !t.cancelled {
			n++
		}
	}
	return n
}

// Elapsed is the virtual time since the clock was created.
func (m *Manual) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) nextDueLocked(target time.Duration) *manualTask {
	live := m.tasks[:0]
	for _, t := range m.tasks {
		if !t.fired && !t.cancelled {
			live = append(live, t)
		}
	}
	m.tasks = live
	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].at != m.tasks[j].at {
			return m.tasks[i].at < m.tasks[j].at
		}
		return m.tasks[i].seq < m.tasks[j].seq
	})
	if len(m.tasks) == 0 || m.tasks[0].at > target {
		return nil
	}
	return m.tasks[0]
}
