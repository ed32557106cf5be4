package config

import (
	"encoding/json"
	"os"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	App        AppConfig        `json:"app"`
	Port       PortConfig       `json:"port"`
	Timing     TimingConfig     `json:"timing"`
	Feed       FeedConfig       `json:"feed"`
	Sink       SinkConfig       `json:"sink"`
	Logging    LoggingConfig    `json:"logging"`
	Monitoring MonitoringConfig `json:"monitoring"`
	Notify     NotifyConfig     `json:"notify"`
}

// AppConfig contains application metadata.
type AppConfig struct {
	Name       string `json:"name"`
	InstanceID string `json:"instance_id"`
}

// PortConfig defines the geometry of the simulated serial port.
type PortConfig struct {
	Name          string `json:"name"`
	Clock         uint   `json:"clock"`
	FIFOSize      int    `json:"fifo_size"`
	XmitSize      int    `json:"xmit_size"`
	WakeupChars   int    `json:"wakeup_chars"`
	ResumeOnWrite bool   `json:"resume_on_write"`
	Description   string `json:"description,omitempty"`
}

// TimingConfig controls the simulated character timing.
type TimingConfig struct {
	TickMs        int     `json:"tick_ms"`
	DelayTicks    int     `json:"delay_ticks"`
	JitterPercent float64 `json:"jitter_percent"`
}

// FeedConfig selects the source of fabricated received bytes.
type FeedConfig struct {
	Name       string `json:"name"`
	Char       string `json:"char,omitempty"`        // constant feed
	Pattern    string `json:"pattern,omitempty"`     // cycle feed
	SampleFile string `json:"sample_file,omitempty"` // replay feed
	Loop       bool   `json:"loop,omitempty"`        // replay feed
}

// SinkConfig selects where drained transmit bytes go.
type SinkConfig struct {
	Type     string `json:"type"` // "none", "stdout", "file", "serial"
	Path     string `json:"path,omitempty"`
	Device   string `json:"device,omitempty"`
	BaudRate int    `json:"baud_rate,omitempty"`
	DataBits int    `json:"data_bits,omitempty"`
	StopBits int    `json:"stop_bits,omitempty"`
	Parity   string `json:"parity,omitempty"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level      string `json:"level"`
	BasePath   string `json:"base_path"`
	Filename   string `json:"filename"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	Compress   bool   `json:"compress"`
}

// MonitoringConfig defines HTTP monitoring settings.
type MonitoringConfig struct {
	Port             int `json:"port"`
	StatsIntervalSec int `json:"stats_interval_sec"`
}

// NotifyConfig defines webhook notification settings.
type NotifyConfig struct {
	WebhookURL     string `json:"webhook_url"`
	NotifyStartup  bool   `json:"notify_startup"`
	NotifyShutdown bool   `json:"notify_shutdown"`
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults sets default values for unspecified fields.
func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "tinyserial"
	}
	if c.App.InstanceID == "" {
		hostname, _ := os.Hostname()
		c.App.InstanceID = hostname
	}

	if c.Port.Name == "" {
		c.Port.Name = "ttytiny0"
	}
	if c.Port.Clock == 0 {
		c.Port.Clock = 3672000
	}
	if c.Port.FIFOSize == 0 {
		c.Port.FIFOSize = 16
	}
	if c.Port.XmitSize == 0 {
		c.Port.XmitSize = 64
	}
	if c.Port.WakeupChars == 0 {
		c.Port.WakeupChars = 4
	}

	if c.Timing.TickMs == 0 {
		c.Timing.TickMs = 1000
	}
	if c.Timing.DelayTicks == 0 {
		c.Timing.DelayTicks = 2
	}

	if c.Feed.Name == "" {
		c.Feed.Name = "constant"
	}

	if c.Sink.Type == "" {
		c.Sink.Type = "stdout"
	}
	if c.Sink.BaudRate == 0 {
		c.Sink.BaudRate = 9600
	}
	if c.Sink.DataBits == 0 {
		c.Sink.DataBits = 8
	}
	if c.Sink.StopBits == 0 {
		c.Sink.StopBits = 1
	}
	if c.Sink.Parity == "" {
		c.Sink.Parity = "none"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Filename == "" {
		c.Logging.Filename = "tinyserial.log"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 50
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 5
	}

	if c.Monitoring.Port == 0 {
		c.Monitoring.Port = 8080
	}
	if c.Monitoring.StatsIntervalSec == 0 {
		c.Monitoring.StatsIntervalSec = 60
	}
}

// Tick returns one scheduling tick as a duration.
func (c *TimingConfig) Tick() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

// StatsInterval returns the stats logging interval as a duration.
func (c *MonitoringConfig) StatsInterval() time.Duration {
	return time.Duration(c.StatsIntervalSec) * time.Second
}
