package uart

// LineSettings carries the line discipline parameters a caller configures
// through the termios path.
type LineSettings struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"` // 5..8
	StopBits int    `json:"stop_bits"` // 1 or 2
	Parity   string `json:"parity"`    // "none", "odd", "even"
	RTSCTS   bool   `json:"rts_cts"`
}

// SetTermios applies new line settings. The simulation has no divisor
// latch to program, so this decodes and records the request the way the
// hardware path would, computing the divisor from the port clock.
func (p *Port) SetTermios(s LineSettings) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger.Debug("set_termios")

	switch s.DataBits {
	case 5, 6, 7:
		p.logger.Debug("line settings", "data_bits", s.DataBits)
	default:
		s.DataBits = 8
		p.logger.Debug("line settings", "data_bits", 8)
	}

	switch s.Parity {
	case "odd", "even":
		p.logger.Debug("line settings", "parity", s.Parity)
	default:
		s.Parity = "none"
		p.logger.Debug("line settings", "parity", "none")
	}

	if s.StopBits == 2 {
		p.logger.Debug("line settings", "stop_bits", 2)
	} else {
		s.StopBits = 1
		p.logger.Debug("line settings", "stop_bits", 1)
	}

	p.logger.Debug("line settings", "rts_cts", s.RTSCTS)

	maxBaud := int(p.cfg.Clock / 16)
	if s.BaudRate <= 0 || s.BaudRate > maxBaud {
		p.logger.Warn("baud rate out of range", "baud", s.BaudRate, "max", maxBaud)
	} else {
		quot := int(p.cfg.Clock) / 16 / s.BaudRate
		p.logger.Debug("line settings", "baud", s.BaudRate, "divisor", quot)
	}

	p.settings = s
}

// Settings returns the most recently applied line settings.
func (p *Port) Settings() LineSettings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}
