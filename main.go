// Command tinyserial runs a simulated UART serial driver: no hardware, a
// repeating timer that fabricates received characters and drains queued
// transmit bytes into a configurable sink. A small HTTP server exposes the
// driver state while it runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bdunix/tinyserial/config"
	"github.com/bdunix/tinyserial/feed"
	"github.com/bdunix/tinyserial/monitoring"
	"github.com/bdunix/tinyserial/notify"
	"github.com/bdunix/tinyserial/sched"
	"github.com/bdunix/tinyserial/serial"
	"github.com/bdunix/tinyserial/tty"
	"github.com/bdunix/tinyserial/uart"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (defaults apply if omitted)")
	validate := flag.Bool("validate", false, "Validate configuration and exit")
	listPorts := flag.Bool("list-ports", false, "List available serial ports and exit")
	listFeeds := flag.Bool("list-feeds", false, "List registered receive feeds and exit")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Display version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "tinyserial - simulated UART serial driver\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s -config config.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -config config.json -validate\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -list-feeds\n", os.Args[0])
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("tinyserial version %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	if *listPorts {
		ports, err := serial.ListPorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Available serial ports:")
		if len(ports) == 0 {
			fmt.Println("  (none found)")
		} else {
			for _, port := range ports {
				fmt.Printf("  %s\n", port)
			}
		}
		os.Exit(0)
	}

	if *listFeeds {
		fmt.Println("Registered receive feeds:")
		feed.ForEach(func(name string, f feed.Feed) {
			fmt.Printf("  %-10s - %s\n", name, f.Description())
		})
		fmt.Printf("  %-10s - %s\n", "replay", "Bytes replayed from a sample file")
		os.Exit(0)
	}

	// Load configuration; without a file the defaults stand in.
	var cfg *config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if err := config.Validate(cfg, feed.List()); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation failed:\n  %v\n", err)
		os.Exit(1)
	}

	if *validate {
		fmt.Println("Configuration is valid")
		fmt.Printf("  Instance: %s\n", cfg.App.InstanceID)
		fmt.Printf("  Port: %s (fifo %d, xmit %d, wakeup %d)\n",
			cfg.Port.Name, cfg.Port.FIFOSize, cfg.Port.XmitSize, cfg.Port.WakeupChars)
		fmt.Printf("  Timing: %v x %d ticks\n", cfg.Timing.Tick(), cfg.Timing.DelayTicks)
		fmt.Printf("  Feed: %s, Sink: %s\n", cfg.Feed.Name, cfg.Sink.Type)
		os.Exit(0)
	}

	logger := setupLogging(cfg, *debug)
	slog.SetDefault(logger)

	logger.Info("tinyserial starting",
		"version", version,
		"instance", cfg.App.InstanceID,
		"port", cfg.Port.Name,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", "signal", sig)
		cancel()
	}()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("tinyserial failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	scheduler := sched.NewTickScheduler(cfg.Timing.JitterPercent)

	driver := uart.NewDriver("tinyserial", "ttytiny", logger)
	defer driver.Unregister()

	port, err := uart.NewPort(uart.Config{
		Name:          cfg.Port.Name,
		Clock:         cfg.Port.Clock,
		FIFOSize:      cfg.Port.FIFOSize,
		XmitSize:      cfg.Port.XmitSize,
		WakeupChars:   cfg.Port.WakeupChars,
		Tick:          cfg.Timing.Tick(),
		DelayTicks:    cfg.Timing.DelayTicks,
		ResumeOnWrite: cfg.Port.ResumeOnWrite,
	}, scheduler, logger)
	if err != nil {
		return fmt.Errorf("creating port: %w", err)
	}
	if err := driver.AddPort(port); err != nil {
		return fmt.Errorf("adding port: %w", err)
	}

	src, err := buildFeed(&cfg.Feed)
	if err != nil {
		return fmt.Errorf("creating feed: %w", err)
	}
	port.SetSource(src.Next)

	sink, err := buildSink(&cfg.Sink)
	if err != nil {
		return fmt.Errorf("creating sink: %w", err)
	}
	var sinkStats *serial.SinkWithStats
	if sink != nil {
		defer sink.Close()
		sinkStats = serial.NewSinkWithStats(sink)
		port.SetWire(func(data []byte) {
			if _, err := sinkStats.Write(data); err != nil {
				logger.Warn("Sink write failed", "error", err)
				return
			}
			if err := sink.Flush(); err != nil {
				logger.Warn("Sink flush failed", "error", err)
			}
		})
	}

	// Open the line: the timer starts firing.
	host, err := tty.Open(port, logger)
	if err != nil {
		return fmt.Errorf("opening line: %w", err)
	}
	defer host.Close()

	status := &statusProvider{port: port, host: host, sinkStats: sinkStats, sink: sink}
	monitorServer := monitoring.NewServer(&cfg.Monitoring, cfg.App.InstanceID, version, status, logger)
	if err := monitorServer.Start(); err != nil {
		logger.Error("Failed to start monitoring server", "error", err)
	}

	notifier := notify.NewSlackNotifier(&cfg.Notify, cfg.App.InstanceID, logger)
	if err := notifier.NotifyStartup(cfg.Port.Name); err != nil {
		logger.Warn("Failed to send startup notification", "error", err)
	}

	// Consume the fabricated receive stream so the log shows the line
	// producing data.
	go consumeLoop(ctx, host, logger)

	// Exercise the transmit side: queue a banner, refill on wakeup.
	go transmitLoop(ctx, host, cfg.Port.Name, logger)

	// Periodic stats.
	go statsLoop(ctx, status, cfg.Monitoring.StatsInterval(), logger)

	startTime := time.Now()
	logger.Info("tinyserial running",
		"monitoring_port", cfg.Monitoring.Port,
		"tick", cfg.Timing.Tick(),
		"delay_ticks", cfg.Timing.DelayTicks,
	)

	<-ctx.Done()

	logger.Info("tinyserial shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := monitorServer.Stop(shutdownCtx); err != nil {
		logger.Warn("Error stopping monitoring server", "error", err)
	}

	host.Close()

	counters := port.Counters()
	uptime := time.Since(startTime)
	if err := notifier.NotifyShutdown(counters.TxBytes, counters.RxBytes, uptime); err != nil {
		logger.Warn("Failed to send shutdown notification", "error", err)
	}

	logger.Info("tinyserial stopped",
		"uptime", uptime,
		"tx_bytes", counters.TxBytes,
		"rx_bytes", counters.RxBytes,
		"firings", counters.Firings,
	)
	return nil
}

func buildFeed(cfg *config.FeedConfig) (feed.Feed, error) {
	switch strings.ToLower(cfg.Name) {
	case "constant":
		char := uart.SyntheticChar
		if cfg.Char != "" {
			char = cfg.Char[0]
		}
		return &feed.ConstantFeed{Char: char}, nil
	case "cycle":
		return feed.NewCycleFeed(cfg.Pattern), nil
	case "replay":
		return feed.NewReplayFeed(cfg.SampleFile, cfg.Loop)
	default:
		return feed.Get(cfg.Name)
	}
}

func buildSink(cfg *config.SinkConfig) (serial.Sink, error) {
	switch strings.ToLower(cfg.Type) {
	case "none":
		return nil, nil
	case "stdout":
		return serial.NewStdoutSink("stdout"), nil
	case "file":
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		return serial.NewFileSink(cfg.Path, f), nil
	case "serial":
		return serial.Open(serial.SinkConfig{
			Device:   cfg.Device,
			BaudRate: cfg.BaudRate,
			DataBits: cfg.DataBits,
			StopBits: cfg.StopBits,
			Parity:   cfg.Parity,
		})
	default:
		return nil, fmt.Errorf("unknown sink type: %s", cfg.Type)
	}
}

func consumeLoop(ctx context.Context, host *tty.Host, logger *slog.Logger) {
	buf := make([]byte, 64)
	for {
		n, err := host.Read(ctx, buf)
		if err != nil {
			return
		}
		logger.Debug("Received", "bytes", n, "data", string(buf[:n]))
	}
}

func transmitLoop(ctx context.Context, host *tty.Host, portName string, logger *slog.Logger) {
	banner := []byte(fmt.Sprintf("hello from %s\n", portName))
	for {
		if _, err := host.Write(ctx, banner); err != nil {
			return
		}
		logger.Debug("Queued banner", "bytes", len(banner))
		select {
		case <-ctx.Done():
			return
		case <-time.After(30 * time.Second):
		}
	}
}

func statsLoop(ctx context.Context, status *statusProvider, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := status.Status()
			logger.Info("Port stats",
				"tx_bytes", st.Port.Counters.TxBytes,
				"rx_bytes", st.Port.Counters.RxBytes,
				"firings", st.Port.Counters.Firings,
				"wakeups", st.Port.Counters.Wakeups,
				"pending_tx", st.Port.PendingTx,
				"tx_state", st.Port.TxState,
			)
		}
	}
}

// statusProvider assembles the monitoring view from the live components.
type statusProvider struct {
	port      *uart.Port
	host      *tty.Host
	sinkStats *serial.SinkWithStats
	sink      serial.Sink
}

func (s *statusProvider) Status() monitoring.Status {
	st := monitoring.Status{
		Port:       s.port.Snapshot(),
		RxOverflow: s.host.Overflow(),
	}
	if s.sinkStats != nil {
		st.Sink = s.sinkStats.Stats()
		st.SinkDevice = s.sink.Device()
	}
	return st
}

func setupLogging(cfg *config.Config, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	} else {
		switch cfg.Logging.Level {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler

	// If base path is set, use file logging with rotation
	if cfg.Logging.BasePath != "" {
		logPath := filepath.Join(cfg.Logging.BasePath, cfg.Logging.Filename)
		writer := &lumberjack.Logger{
			Filename:   logPath,
			MaxSize:    cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			Compress:   cfg.Logging.Compress,
		}
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
