package uart

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bdunix/tinyserial/ring"
)

// TxState is the state of the transmit path.
type TxState string

const (
	// TxIdle means nothing is queued.
	TxIdle TxState = "idle"
	// TxActive means the drain is consuming queued bytes.
	TxActive TxState = "active"
	// TxStopped means the upper layer requested a transmit halt. It is
	// sticky until StartTx unless the port was configured to resume on
	// write.
	TxStopped TxState = "stopped"
)

// ModemLines is a bitmask of modem control/status lines.
type ModemLines uint

const (
	LineRTS ModemLines = 1 << iota
	LineDTR
	LineCTS
	LineDSR
	LineCD
)

// Counters tracks per-port I/O activity.
type Counters struct {
	TxBytes uint64 `json:"tx_bytes"`
	RxBytes uint64 `json:"rx_bytes"`
	Firings uint64 `json:"firings"`
	Wakeups uint64 `json:"wakeups"`
}

// Config describes the geometry and timing of a simulated port.
type Config struct {
	Name        string        // device name, e.g. "ttytiny0"
	Clock       uint          // input clock in Hz
	FIFOSize    int           // hardware FIFO depth; half is drained per firing
	XmitSize    int           // transmit ring capacity
	WakeupChars int           // low-water mark for the wakeup signal
	Tick        time.Duration // one scheduling tick
	DelayTicks  int           // ticks between firings

	// ResumeOnWrite clears a transmit stop when new bytes are queued
	// instead of waiting for an explicit StartTx.
	ResumeOnWrite bool
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "ttytiny0"
	}
	if c.Clock == 0 {
		c.Clock = 3672000
	}
	if c.FIFOSize == 0 {
		c.FIFOSize = 16
	}
	if c.XmitSize == 0 {
		c.XmitSize = 64
	}
	if c.WakeupChars == 0 {
		c.WakeupChars = 4
	}
	if c.Tick == 0 {
		c.Tick = time.Second
	}
	if c.DelayTicks == 0 {
		c.DelayTicks = 2
	}
}

// Port is one logical serial line. All mutable state is guarded by mu;
// the timer firing, the host callbacks, and the upper-layer write path all
// serialize on it.
type Port struct {
	cfg    Config
	logger *slog.Logger
	sched  Scheduler

	mu       sync.Mutex
	open     bool
	adapter  PortAdapter
	source   Source
	wire     func([]byte)
	timer    *lineTimer
	xmit     *ring.Buffer
	xChar    byte
	txState  TxState
	mctrl    ModemLines
	counters Counters
	settings LineSettings
}

// NewPort creates a closed port with the given geometry.
func NewPort(cfg Config, sched Scheduler, logger *slog.Logger) (*Port, error) {
	cfg.applyDefaults()
	if sched == nil {
		return nil, fmt.Errorf("uart: nil scheduler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	xmit, err := ring.New(cfg.XmitSize)
	if err != nil {
		return nil, err
	}
	return &Port{
		cfg:     cfg,
		logger:  logger.With("port", cfg.Name),
		sched:   sched,
		xmit:    xmit,
		txState: TxIdle,
	}, nil
}

// Name returns the device name.
func (p *Port) Name() string {
	return p.cfg.Name
}

// Config returns the port geometry.
func (p *Port) Config() Config {
	return p.cfg
}

// SetSource installs the receive feed. A nil source falls back to the
// constant synthetic character.
func (p *Port) SetSource(s Source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = s
}

// SetWire installs the destination for drained transmit bytes. Without a
// wire the bytes are only logged, like hardware with nothing attached.
func (p *Port) SetWire(fn func([]byte)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wire = fn
}

// SyntheticChar is the byte fabricated as received data when no feed is
// configured.
const SyntheticChar byte = 't'

// Startup opens the port: it records the upper layer, lazily creates the
// line timer, and arms the first firing. An error arming the timer aborts
// the open. Invoked by the host when the line is first opened.
func (p *Port) Startup(adapter PortAdapter) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger.Debug("startup")
	if p.open {
		return fmt.Errorf("uart: port %s already open", p.cfg.Name)
	}
	if adapter == nil {
		return fmt.Errorf("uart: nil adapter")
	}

	if p.timer == nil {
		p.timer = newLineTimer(p)
	}
	p.adapter = adapter
	p.open = true

	if err := p.timer.startLocked(); err != nil {
		p.open = false
		p.adapter = nil
		return fmt.Errorf("uart: arming line timer: %w", err)
	}
	return nil
}

// Shutdown closes the port and cancels the pending firing. The timer
// handle is kept for the next open. A firing already in flight observes
// the closed port and does nothing. Safe to call on a closed port.
func (p *Port) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger.Debug("shutdown")
	p.open = false
	p.adapter = nil
	if p.timer != nil {
		p.timer.stopLocked()
	}
}

// IsOpen reports whether the port is open.
func (p *Port) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// QueueTx queues bytes for transmission, up to the free space in the ring.
// It returns the number accepted. Queuing into a stopped port leaves the
// stop in place unless the port resumes on write.
func (p *Port) QueueTx(data []byte) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, b := range data {
		if !p.xmit.Push(b) {
			break
		}
		n++
	}
	if n > 0 && p.txState == TxStopped && p.cfg.ResumeOnWrite {
		p.txState = TxActive
	}
	return n
}

// PendingTx returns the number of queued transmit bytes.
func (p *Port) PendingTx() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.xmit.Pending()
}

// SendXChar latches a single control character that the next drain sends
// ahead of the main buffer.
func (p *Port) SendXChar(b byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.xChar = b
}

// StartTx resumes a stopped transmit path.
func (p *Port) StartTx() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger.Debug("start_tx")
	if p.txState != TxStopped {
		return
	}
	if p.xmit.Empty() {
		p.txState = TxIdle
	} else {
		p.txState = TxActive
	}
}

// StopTx halts the transmit path until StartTx.
func (p *Port) StopTx() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger.Debug("stop_tx")
	p.txState = TxStopped
}

// StopRx would disable the receiver; there is no hardware to disable.
func (p *Port) StopRx() {
	p.logger.Debug("stop_rx")
}

// EnableModemStatus would enable modem status interrupts.
func (p *Port) EnableModemStatus() {
	p.logger.Debug("enable_modem_status")
}

// BreakCtl would assert or clear a break condition on the line.
func (p *Port) BreakCtl(on bool) {
	p.logger.Debug("break_ctl", "on", on)
}

// TxEmpty reports whether nothing is left to transmit.
func (p *Port) TxEmpty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.xmit.Empty() && p.xChar == 0
}

// GetMctrl returns the modem control line state.
func (p *Port) GetMctrl() ModemLines {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger.Debug("get_mctrl")
	return p.mctrl
}

// SetMctrl sets the modem control line state.
func (p *Port) SetMctrl(m ModemLines) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger.Debug("set_mctrl", "mctrl", uint(m))
	p.mctrl = m
}

// TxState returns the current transmit path state.
func (p *Port) TxState() TxState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.txState
}

// Counters returns a copy of the I/O counters.
func (p *Port) Counters() Counters {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counters
}

// Type identifies the simulated hardware.
func (p *Port) Type() string {
	return "tinytty"
}

// RequestPort would claim the port's I/O region.
func (p *Port) RequestPort() error {
	p.logger.Debug("request_port")
	return nil
}

// ReleasePort would release the port's I/O region.
func (p *Port) ReleasePort() {
	p.logger.Debug("release_port")
}

// ConfigPort would autoconfigure the hardware.
func (p *Port) ConfigPort() {
	p.logger.Debug("config_port")
}

// VerifyPort would check user-supplied port settings.
func (p *Port) VerifyPort() error {
	p.logger.Debug("verify_port")
	return nil
}

// State is a point-in-time snapshot of a port, taken under one lock so
// observability consumers see consistent numbers.
type State struct {
	Name      string       `json:"name"`
	Type      string       `json:"type"`
	Open      bool         `json:"open"`
	TxState   TxState      `json:"tx_state"`
	PendingTx int          `json:"pending_tx"`
	XCharSet  bool         `json:"x_char_set"`
	Counters  Counters     `json:"counters"`
	Settings  LineSettings `json:"settings"`
	Mctrl     ModemLines   `json:"mctrl"`
}

// Snapshot returns the port state.
func (p *Port) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		Name:      p.cfg.Name,
		Type:      "tinytty",
		Open:      p.open,
		TxState:   p.txState,
		PendingTx: p.xmit.Pending(),
		XCharSet:  p.xChar != 0,
		Counters:  p.counters,
		Settings:  p.settings,
		Mctrl:     p.mctrl,
	}
}

// fire is the timer callback: inject one received byte, flush, re-arm,
// then drain the transmit side. A closed port makes the whole firing a
// silent no-op with no re-arm.
func (p *Port) fire() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open || p.adapter == nil || !p.adapter.IsOpen() {
		return
	}
	p.counters.Firings++

	if b, ok := p.nextRxByte(); ok {
		p.adapter.InjectReceivedByte(b)
		p.counters.RxBytes++
	}
	p.adapter.FlushReceived()

	if err := p.timer.rearmLocked(); err != nil {
		p.logger.Error("re-arming line timer", "error", err)
	}

	p.txChars()
}

func (p *Port) nextRxByte() (byte, bool) {
	if p.source != nil {
		return p.source()
	}
	return SyntheticChar, true
}

// txChars simulates the hardware consuming queued output: the control
// character first, then up to half a FIFO's worth of the ring.
func (p *Port) txChars() {
	if p.xChar != 0 {
		p.logger.Debug("x_char sent", "char", fmt.Sprintf("0x%02x", p.xChar))
		if p.wire != nil {
			p.wire([]byte{p.xChar})
		}
		p.counters.TxBytes++
		p.xChar = 0
		return
	}

	if p.xmit.Empty() || p.txState == TxStopped {
		p.stopTxLocked()
		return
	}

	p.txState = TxActive
	before := p.xmit.Pending()
	count := p.cfg.FIFOSize / 2
	var sent []byte
	for count > 0 {
		b, ok := p.xmit.Pop()
		if !ok {
			break
		}
		sent = append(sent, b)
		p.counters.TxBytes++
		count--
	}
	if len(sent) > 0 {
		p.logger.Debug("xmit drained", "bytes", len(sent), "pending", p.xmit.Pending())
		if p.wire != nil {
			p.wire(sent)
		}
	}

	if before >= p.cfg.WakeupChars && p.xmit.Pending() < p.cfg.WakeupChars {
		p.counters.Wakeups++
		p.adapter.SignalWakeup()
	}

	if p.xmit.Empty() {
		p.stopTxLocked()
	}
}

// stopTxLocked is the terminal no-more-to-send condition. A sticky stop
// stays stopped; otherwise the path returns to idle.
func (p *Port) stopTxLocked() {
	if p.txState != TxStopped {
		p.txState = TxIdle
	}
}

// releaseLocked frees the timer handle. Called when the port is removed
// from its driver.
func (p *Port) releaseLocked() {
	p.open = false
	p.adapter = nil
	if p.timer != nil {
		p.timer.stopLocked()
		p.timer = nil
	}
}
