package uart_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bdunix/tinyserial/sched"
	"github.com/bdunix/tinyserial/uart"
)

// testAdapter is a line-discipline stand-in. The manual scheduler runs
// firings on the test goroutine, so no locking is needed.
type testAdapter struct {
	open     bool
	injected []byte
	flushes  int
	wakeups  int
}

func newTestAdapter() *testAdapter {
	return &testAdapter{open: true}
}

func (a *testAdapter) InjectReceivedByte(b byte) { a.injected = append(a.injected, b) }
func (a *testAdapter) FlushReceived()            { a.flushes++ }
func (a *testAdapter) IsOpen() bool              { return a.open }
func (a *testAdapter) SignalWakeup()             { a.wakeups++ }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPort(t *testing.T, cfg uart.Config, s *sched.ManualScheduler) *uart.Port {
	t.Helper()
	p, err := uart.NewPort(cfg, s, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	return p
}

const tick = time.Second

func defaultCfg() uart.Config {
	return uart.Config{Tick: tick, DelayTicks: 2}
}

func TestFiringInjectsOneSyntheticBytePerInterval(t *testing.T) {
	s := sched.NewManualScheduler()
	p := newTestPort(t, defaultCfg(), s)
	a := newTestAdapter()

	if err := p.Startup(a); err != nil {
		t.Fatal(err)
	}

	// Nothing before the delay elapses.
	s.Advance(tick)
	if len(a.injected) != 0 {
		t.Fatalf("injected %d bytes before the delay", len(a.injected))
	}

	s.Advance(tick)
	if len(a.injected) != 1 || a.injected[0] != uart.SyntheticChar {
		t.Fatalf("injected %q; want one %q", a.injected, uart.SyntheticChar)
	}
	if a.flushes != 1 {
		t.Fatalf("flushes=%d; want 1", a.flushes)
	}

	// The timer self-perpetuates: one byte per interval.
	s.Advance(3 * 2 * tick)
	if len(a.injected) != 4 {
		t.Fatalf("injected %d bytes after 4 intervals; want 4", len(a.injected))
	}

	c := p.Counters()
	if c.RxBytes != 4 || c.Firings != 4 {
		t.Fatalf("counters rx=%d firings=%d; want 4,4", c.RxBytes, c.Firings)
	}

	p.Shutdown()
	s.Advance(10 * tick)
	if len(a.injected) != 4 {
		t.Fatalf("injection continued after shutdown: %d bytes", len(a.injected))
	}
}

func TestStartupAllocationFailureAbortsOpen(t *testing.T) {
	s := sched.NewManualScheduler()
	p := newTestPort(t, defaultCfg(), s)

	boom := errors.New("no timers left")
	s.FailAllocations(boom)

	if err := p.Startup(newTestAdapter()); !errors.Is(err, boom) {
		t.Fatalf("Startup err=%v; want %v", err, boom)
	}
	if p.IsOpen() {
		t.Fatal("port open after failed startup")
	}

	// The failure is terminal for that attempt only.
	s.FailAllocations(nil)
	if err := p.Startup(newTestAdapter()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
}

func TestShutdownWithoutStartupIsNoOp(t *testing.T) {
	s := sched.NewManualScheduler()
	p := newTestPort(t, defaultCfg(), s)

	p.Shutdown()
	p.Shutdown()
	if s.Pending() != 0 {
		t.Fatalf("pending=%d after no-op shutdowns", s.Pending())
	}
}

func TestSecondStartupKeepsSinglePendingFiring(t *testing.T) {
	s := sched.NewManualScheduler()
	p := newTestPort(t, defaultCfg(), s)
	a := newTestAdapter()

	if err := p.Startup(a); err != nil {
		t.Fatal(err)
	}
	if err := p.Startup(newTestAdapter()); err == nil {
		t.Fatal("second startup succeeded")
	}
	if s.Pending() != 1 {
		t.Fatalf("pending=%d after double start; want 1", s.Pending())
	}

	s.Advance(2 * tick)
	if len(a.injected) != 1 {
		t.Fatalf("injected %d; want exactly 1 per interval", len(a.injected))
	}
}

func TestStaleFiringIsSilentNoOp(t *testing.T) {
	s := sched.NewManualScheduler()
	p := newTestPort(t, defaultCfg(), s)
	a := newTestAdapter()

	if err := p.Startup(a); err != nil {
		t.Fatal(err)
	}

	// Upper layer goes away between arm and fire.
	a.open = false
	s.Advance(2 * tick)

	if len(a.injected) != 0 || a.flushes != 0 {
		t.Fatalf("stale firing touched the adapter: injected=%d flushes=%d",
			len(a.injected), a.flushes)
	}
	if s.Pending() != 0 {
		t.Fatal("stale firing re-armed itself")
	}
}

func TestTimerReusedAcrossReopen(t *testing.T) {
	s := sched.NewManualScheduler()
	p := newTestPort(t, defaultCfg(), s)

	a1 := newTestAdapter()
	if err := p.Startup(a1); err != nil {
		t.Fatal(err)
	}
	s.Advance(2 * tick)
	p.Shutdown()

	a2 := newTestAdapter()
	if err := p.Startup(a2); err != nil {
		t.Fatal(err)
	}
	s.Advance(2 * tick)

	if len(a1.injected) != 1 || len(a2.injected) != 1 {
		t.Fatalf("injected a1=%d a2=%d; want 1,1", len(a1.injected), len(a2.injected))
	}
}

func TestDrainReferenceScenario(t *testing.T) {
	// Capacity 16, low-water 4, 10 bytes queued.
	cfg := uart.Config{Tick: tick, DelayTicks: 2, FIFOSize: 16, XmitSize: 16, WakeupChars: 4}
	s := sched.NewManualScheduler()
	p := newTestPort(t, cfg, s)
	a := newTestAdapter()

	var wire []byte
	p.SetWire(func(b []byte) { wire = append(wire, b...) })

	if err := p.Startup(a); err != nil {
		t.Fatal(err)
	}

	payload := []byte("0123456789")
	if n := p.QueueTx(payload); n != 10 {
		t.Fatalf("queued %d; want 10", n)
	}

	// First firing: drains capacity/2 = 8, pending 2, wakeup fires.
	s.Advance(2 * tick)
	if got := p.PendingTx(); got != 2 {
		t.Fatalf("pending=%d after first firing; want 2", got)
	}
	if a.wakeups != 1 {
		t.Fatalf("wakeups=%d after first firing; want 1", a.wakeups)
	}
	if p.TxState() != uart.TxActive {
		t.Fatalf("state=%s; want active", p.TxState())
	}

	// Second firing: drains the remaining 2, terminal condition, no
	// second wakeup (already below the mark).
	s.Advance(2 * tick)
	if got := p.PendingTx(); got != 0 {
		t.Fatalf("pending=%d after second firing; want 0", got)
	}
	if a.wakeups != 1 {
		t.Fatalf("wakeups=%d after second firing; want 1", a.wakeups)
	}
	if p.TxState() != uart.TxIdle {
		t.Fatalf("state=%s; want idle", p.TxState())
	}

	if string(wire) != string(payload) {
		t.Fatalf("wire=%q; want %q", wire, payload)
	}
	c := p.Counters()
	if c.TxBytes != 10 || c.Wakeups != 1 {
		t.Fatalf("counters tx=%d wakeups=%d; want 10,1", c.TxBytes, c.Wakeups)
	}
}

func TestDrainEmptyBufferIsTerminalNoOp(t *testing.T) {
	s := sched.NewManualScheduler()
	p := newTestPort(t, defaultCfg(), s)
	a := newTestAdapter()

	if err := p.Startup(a); err != nil {
		t.Fatal(err)
	}
	s.Advance(2 * tick)

	c := p.Counters()
	if c.TxBytes != 0 {
		t.Fatalf("tx=%d on empty buffer", c.TxBytes)
	}
	if a.wakeups != 0 {
		t.Fatalf("wakeups=%d on empty buffer", a.wakeups)
	}
	if p.TxState() != uart.TxIdle {
		t.Fatalf("state=%s; want idle", p.TxState())
	}
}

func TestNoWakeupWhenAlreadyBelowMark(t *testing.T) {
	cfg := uart.Config{Tick: tick, DelayTicks: 2, FIFOSize: 16, XmitSize: 16, WakeupChars: 4}
	s := sched.NewManualScheduler()
	p := newTestPort(t, cfg, s)
	a := newTestAdapter()

	if err := p.Startup(a); err != nil {
		t.Fatal(err)
	}
	p.QueueTx([]byte("abc")) // 3 < low-water mark

	s.Advance(2 * tick)
	if p.PendingTx() != 0 {
		t.Fatalf("pending=%d; want 0", p.PendingTx())
	}
	if a.wakeups != 0 {
		t.Fatalf("wakeups=%d; want 0 (count never crossed the mark)", a.wakeups)
	}
}

func TestXCharSentBeforeBuffer(t *testing.T) {
	s := sched.NewManualScheduler()
	p := newTestPort(t, defaultCfg(), s)
	a := newTestAdapter()

	var wire []byte
	p.SetWire(func(b []byte) { wire = append(wire, b...) })

	if err := p.Startup(a); err != nil {
		t.Fatal(err)
	}
	p.QueueTx([]byte("data"))
	p.SendXChar(0x13) // XOFF

	s.Advance(2 * tick)
	if p.PendingTx() != 4 {
		t.Fatalf("pending=%d; x_char firing touched the buffer", p.PendingTx())
	}
	if c := p.Counters(); c.TxBytes != 1 {
		t.Fatalf("tx=%d; want 1 (the control character)", c.TxBytes)
	}
	if p.Snapshot().XCharSet {
		t.Fatal("x_char register not cleared")
	}

	s.Advance(2 * tick)
	if string(wire) != "\x13data" {
		t.Fatalf("wire=%q; want control char then payload", wire)
	}
}

func TestStopTxIsStickyByDefault(t *testing.T) {
	s := sched.NewManualScheduler()
	p := newTestPort(t, defaultCfg(), s)
	a := newTestAdapter()

	if err := p.Startup(a); err != nil {
		t.Fatal(err)
	}
	p.QueueTx([]byte("hold"))
	p.StopTx()

	s.Advance(2 * tick)
	if p.PendingTx() != 4 {
		t.Fatalf("stopped port drained to pending=%d", p.PendingTx())
	}
	if p.TxState() != uart.TxStopped {
		t.Fatalf("state=%s; want stopped", p.TxState())
	}

	// Queuing more does not clear the stop.
	p.QueueTx([]byte("!"))
	s.Advance(2 * tick)
	if p.TxState() != uart.TxStopped || p.PendingTx() != 5 {
		t.Fatalf("state=%s pending=%d; stop not sticky", p.TxState(), p.PendingTx())
	}

	p.StartTx()
	if p.TxState() != uart.TxActive {
		t.Fatalf("state=%s after StartTx; want active", p.TxState())
	}
	s.Advance(2 * tick)
	if p.PendingTx() != 0 {
		t.Fatalf("pending=%d after resume; want 0", p.PendingTx())
	}
}

func TestResumeOnWriteClearsStop(t *testing.T) {
	cfg := defaultCfg()
	cfg.ResumeOnWrite = true
	s := sched.NewManualScheduler()
	p := newTestPort(t, cfg, s)
	a := newTestAdapter()

	if err := p.Startup(a); err != nil {
		t.Fatal(err)
	}
	p.StopTx()
	p.QueueTx([]byte("go"))

	if p.TxState() != uart.TxActive {
		t.Fatalf("state=%s; want active after write", p.TxState())
	}
	s.Advance(2 * tick)
	if p.PendingTx() != 0 {
		t.Fatalf("pending=%d; want 0", p.PendingTx())
	}
}

func TestQueueTxStopsAtCapacity(t *testing.T) {
	cfg := defaultCfg()
	cfg.XmitSize = 8
	s := sched.NewManualScheduler()
	p := newTestPort(t, cfg, s)

	n := p.QueueTx([]byte("0123456789abcdef"))
	if n != 8 {
		t.Fatalf("accepted %d; want 8", n)
	}
	if p.PendingTx() != 8 {
		t.Fatalf("pending=%d; want 8", p.PendingTx())
	}
}

func TestCustomSource(t *testing.T) {
	s := sched.NewManualScheduler()
	p := newTestPort(t, defaultCfg(), s)
	a := newTestAdapter()

	next := byte('A')
	p.SetSource(func() (byte, bool) {
		b := next
		next++
		return b, true
	})

	if err := p.Startup(a); err != nil {
		t.Fatal(err)
	}
	s.Advance(3 * 2 * tick)
	if string(a.injected) != "ABC" {
		t.Fatalf("injected %q; want \"ABC\"", a.injected)
	}
}

func TestExhaustedSourceSkipsInjectionButKeepsFiring(t *testing.T) {
	s := sched.NewManualScheduler()
	p := newTestPort(t, defaultCfg(), s)
	a := newTestAdapter()

	p.SetSource(func() (byte, bool) { return 0, false })

	if err := p.Startup(a); err != nil {
		t.Fatal(err)
	}
	p.QueueTx([]byte("xy"))
	s.Advance(2 * tick)

	if len(a.injected) != 0 {
		t.Fatalf("injected %d bytes from an exhausted source", len(a.injected))
	}
	if a.flushes != 1 {
		t.Fatalf("flushes=%d; want 1", a.flushes)
	}
	// The firing still drained the transmit side.
	if p.PendingTx() != 0 {
		t.Fatalf("pending=%d; want 0", p.PendingTx())
	}
	if s.Pending() != 1 {
		t.Fatal("firing did not re-arm")
	}
}

func TestTxEmpty(t *testing.T) {
	s := sched.NewManualScheduler()
	p := newTestPort(t, defaultCfg(), s)

	if !p.TxEmpty() {
		t.Fatal("fresh port not empty")
	}
	p.QueueTx([]byte("x"))
	if p.TxEmpty() {
		t.Fatal("empty with a byte queued")
	}

	q := newTestPort(t, defaultCfg(), s)
	q.SendXChar(1)
	if q.TxEmpty() {
		t.Fatal("empty with x_char latched")
	}
}

func TestMctrlRoundTrip(t *testing.T) {
	s := sched.NewManualScheduler()
	p := newTestPort(t, defaultCfg(), s)

	if p.GetMctrl() != 0 {
		t.Fatalf("mctrl=%v on a fresh port", p.GetMctrl())
	}
	p.SetMctrl(uart.LineRTS | uart.LineDTR)
	if got := p.GetMctrl(); got != uart.LineRTS|uart.LineDTR {
		t.Fatalf("mctrl=%v; want RTS|DTR", got)
	}
}

func TestSetTermiosNormalizesSettings(t *testing.T) {
	s := sched.NewManualScheduler()
	p := newTestPort(t, defaultCfg(), s)

	p.SetTermios(uart.LineSettings{BaudRate: 9600, DataBits: 0, StopBits: 0, Parity: "bogus"})
	got := p.Settings()
	if got.DataBits != 8 || got.StopBits != 1 || got.Parity != "none" || got.BaudRate != 9600 {
		t.Fatalf("settings=%+v; want 8N1 at 9600", got)
	}

	p.SetTermios(uart.LineSettings{BaudRate: 115200, DataBits: 7, StopBits: 2, Parity: "even", RTSCTS: true})
	got = p.Settings()
	if got.DataBits != 7 || got.StopBits != 2 || got.Parity != "even" || !got.RTSCTS {
		t.Fatalf("settings=%+v; want 7E2 with RTS/CTS", got)
	}
}

func TestSnapshot(t *testing.T) {
	s := sched.NewManualScheduler()
	p := newTestPort(t, defaultCfg(), s)
	a := newTestAdapter()

	if err := p.Startup(a); err != nil {
		t.Fatal(err)
	}
	p.QueueTx([]byte("abc"))

	st := p.Snapshot()
	if !st.Open || st.PendingTx != 3 || st.Name != "ttytiny0" || st.Type != "tinytty" {
		t.Fatalf("snapshot=%+v", st)
	}
}
