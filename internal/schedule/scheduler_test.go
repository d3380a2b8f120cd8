package schedule_test

import (
	"sync/atomic"
	"testing"
	"time"

	"tripquote/internal/schedule"
)

func TestManual_FiresInOrderAndRespectsCancel(t *testing.T) {
	m := schedule.NewManual()
	var got []string

	m.AfterFunc(300*time.Millisecond, func() { got = append(got, "c") })
	m.AfterFunc(100*time.Millisecond, func() { got = append(got, "a") })
	h := m.AfterFunc(200*time.Millisecond, func() { got = append(got, "b") })

	if !h.Cancel() {
		t.Fatalf("expected cancel to stop a pending task")
	}
	m.Advance(250 * time.Millisecond)
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("after 250ms got %v", got)
	}
	m.Advance(50 * time.Millisecond)
	if len(got) != 2 || got[1] != "c" {
		t.Fatalf("after 300ms got %v", got)
	}
	if h.Cancel() {
		t.Fatalf("second cancel should report false")
	}
	if m.Pending() != 0 {
		t.Fatalf("pending = %d", m.Pending())
	}
}

func TestSlot_CoalescesToLatest(t *testing.T) {
	m := schedule.NewManual()
	slot := schedule.NewSlot(m)
	var last, runs int

	for i := 1; i <= 3; i++ {
		i := i
		slot.Replace(700*time.Millisecond, func() { last = i; runs++ })
		m.Advance(200 * time.Millisecond)
	}
	if runs != 0 {
		t.Fatalf("fired during the quiet window: %d", runs)
	}
	m.Advance(700 * time.Millisecond)
	if runs != 1 || last != 3 {
		t.Fatalf("runs=%d last=%d, want 1 run of the third task", runs, last)
	}
	if slot.Pending() {
		t.Fatalf("slot still pending after firing")
	}
}

func TestSlot_CancelDropsPending(t *testing.T) {
	m := schedule.NewManual()
	slot := schedule.NewSlot(m)
	ran := false
	slot.Replace(0, func() { ran = true })
	slot.Cancel()
	m.Flush()
	if ran {
		t.Fatalf("cancelled task ran")
	}
}

func TestReal_AfterFunc(t *testing.T) {
	var n int32
	done := make(chan struct{})
	schedule.Real{}.AfterFunc(5*time.Millisecond, func() {
		atomic.AddInt32(&n, 1)
		close(done)
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("real timer never fired")
	}
	h := schedule.Real{}.AfterFunc(time.Hour, func() { atomic.AddInt32(&n, 1) })
	if !h.Cancel() {
		t.Fatalf("expected to stop the hour-long timer")
	}
	if atomic.LoadInt32(&n) != 1 {
		t.Fatalf("n = %d", n)
	}
}
