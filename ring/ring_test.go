package ring

import "testing"

func TestNewRejectsBadCapacity(t *testing.T) {
	for _, c := range []int{0, -1} {
		if _, err := New(c); err == nil {
			t.Fatalf("New(%d): expected error", c)
		}
	}
}

func TestPushPopOrder(t *testing.T) {
	b, err := New(4)
	if err != nil {
		t.Fatal(err)
	}

	for _, v := range []byte("abc") {
		if !b.Push(v) {
			t.Fatalf("Push(%q) failed with %d pending", v, b.Pending())
		}
	}
	if b.Pending() != 3 || b.Free() != 1 {
		t.Fatalf("pending=%d free=%d; want 3,1", b.Pending(), b.Free())
	}

	for _, want := range []byte("abc") {
		got, ok := b.Pop()
		if !ok || got != want {
			t.Fatalf("Pop = %q,%v; want %q,true", got, ok, want)
		}
	}
	if !b.Empty() {
		t.Fatalf("expected empty, pending=%d", b.Pending())
	}
}

func TestPopEmptyDoesNotMoveHead(t *testing.T) {
	b, _ := New(2)
	if _, ok := b.Pop(); ok {
		t.Fatal("Pop on empty succeeded")
	}
	b.Push('x')
	got, ok := b.Pop()
	if !ok || got != 'x' {
		t.Fatalf("Pop = %q,%v; want 'x',true", got, ok)
	}
}

func TestPushFullDoesNotMoveTail(t *testing.T) {
	b, _ := New(2)
	b.Push('a')
	b.Push('b')
	if b.Push('c') {
		t.Fatal("Push on full succeeded")
	}
	if !b.Full() || b.Pending() != 2 {
		t.Fatalf("full=%v pending=%d; want true,2", b.Full(), b.Pending())
	}
	got, _ := b.Pop()
	if got != 'a' {
		t.Fatalf("Pop = %q; want 'a'", got)
	}
}

func TestWrapAround(t *testing.T) {
	b, _ := New(3)

	// Cycle enough bytes to wrap the indices several times.
	next := byte(0)
	for i := 0; i < 10; i++ {
		if !b.Push(next) {
			t.Fatalf("Push failed at cycle %d", i)
		}
		got, ok := b.Pop()
		if !ok || got != next {
			t.Fatalf("cycle %d: Pop = %d,%v; want %d,true", i, got, ok, next)
		}
		next++
	}

	// Partial fill across the wrap point.
	b.Push(1)
	b.Push(2)
	b.Push(3)
	if !b.Full() {
		t.Fatal("expected full")
	}
	for want := byte(1); want <= 3; want++ {
		got, _ := b.Pop()
		if got != want {
			t.Fatalf("Pop = %d; want %d", got, want)
		}
	}
}

func TestClear(t *testing.T) {
	b, _ := New(4)
	b.Push('a')
	b.Push('b')
	b.Clear()
	if !b.Empty() || b.Free() != 4 {
		t.Fatalf("after Clear: pending=%d free=%d", b.Pending(), b.Free())
	}
	if _, ok := b.Pop(); ok {
		t.Fatal("Pop after Clear succeeded")
	}
}
