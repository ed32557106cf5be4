package sched

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestTickSchedulerFiresOnce(t *testing.T) {
	s := NewTickScheduler(0)

	var fired atomic.Int32
	done := make(chan struct{})
	_, err := s.ScheduleAfter(10*time.Millisecond, func() {
		fired.Add(1)
		close(done)
	})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for firing")
	}
	time.Sleep(30 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("fired %d times; want 1", got)
	}
}

func TestTickSchedulerCancel(t *testing.T) {
	s := NewTickScheduler(0)

	var fired atomic.Int32
	h, err := s.ScheduleAfter(50*time.Millisecond, func() { fired.Add(1) })
	if err != nil {
		t.Fatal(err)
	}
	if !s.Cancel(h) {
		t.Fatal("Cancel returned false for a pending firing")
	}
	time.Sleep(120 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Fatalf("cancelled callback fired %d times", got)
	}

	if s.Cancel(nil) {
		t.Fatal("Cancel(nil) returned true")
	}
}

func TestTickSchedulerJitterBounds(t *testing.T) {
	s := NewTickScheduler(25)
	base := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		d := s.interval(base)
		if d < 75*time.Millisecond || d > 125*time.Millisecond {
			t.Fatalf("interval %v outside +/-25%% of %v", d, base)
		}
	}
}

func TestManualSchedulerRunsInDueOrder(t *testing.T) {
	s := NewManualScheduler()

	var order []int
	s.ScheduleAfter(3*time.Second, func() { order = append(order, 3) })
	s.ScheduleAfter(1*time.Second, func() { order = append(order, 1) })
	s.ScheduleAfter(2*time.Second, func() { order = append(order, 2) })

	s.Advance(5 * time.Second)

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("ran in order %v; want [1 2 3]", order)
	}
	if s.Pending() != 0 {
		t.Fatalf("pending=%d; want 0", s.Pending())
	}
}

func TestManualSchedulerReentrantReschedule(t *testing.T) {
	s := NewManualScheduler()

	count := 0
	var fn func()
	fn = func() {
		count++
		if count < 3 {
			s.ScheduleAfter(time.Second, fn)
		}
	}
	s.ScheduleAfter(time.Second, fn)

	s.Advance(10 * time.Second)
	if count != 3 {
		t.Fatalf("count=%d; want 3", count)
	}
}

func TestManualSchedulerCancel(t *testing.T) {
	s := NewManualScheduler()

	fired := false
	h, _ := s.ScheduleAfter(time.Second, func() { fired = true })
	if !s.Cancel(h) {
		t.Fatal("Cancel returned false")
	}
	s.Advance(5 * time.Second)
	if fired {
		t.Fatal("cancelled callback fired")
	}
	if s.Cancel(h) {
		t.Fatal("second Cancel returned true")
	}
}

func TestManualSchedulerAllocationFailure(t *testing.T) {
	s := NewManualScheduler()
	boom := errors.New("no timers left")
	s.FailAllocations(boom)

	if _, err := s.ScheduleAfter(time.Second, func() {}); !errors.Is(err, boom) {
		t.Fatalf("err=%v; want %v", err, boom)
	}

	s.FailAllocations(nil)
	if _, err := s.ScheduleAfter(time.Second, func() {}); err != nil {
		t.Fatalf("unexpected err after clearing: %v", err)
	}
}
