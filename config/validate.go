package config

import (
	"fmt"
	"os"
	"strings"
)

// ValidationError contains details about a configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors.
func Validate(cfg *Config, availableFeeds []string) error {
	var errors ValidationErrors

	errors = append(errors, validatePort(cfg.Port)...)
	errors = append(errors, validateFeed(cfg.Feed, availableFeeds)...)
	errors = append(errors, validateSink(cfg.Sink)...)

	if cfg.Timing.TickMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "timing.tick_ms",
			Message: "must be at least 1",
		})
	}
	if cfg.Timing.DelayTicks < 1 {
		errors = append(errors, ValidationError{
			Field:   "timing.delay_ticks",
			Message: "must be at least 1",
		})
	}
	if cfg.Timing.JitterPercent < 0 || cfg.Timing.JitterPercent > 100 {
		errors = append(errors, ValidationError{
			Field:   "timing.jitter_percent",
			Message: "must be between 0 and 100",
		})
	}

	if cfg.Logging.BasePath != "" {
		if info, err := os.Stat(cfg.Logging.BasePath); err != nil || !info.IsDir() {
			errors = append(errors, ValidationError{
				Field:   "logging.base_path",
				Message: fmt.Sprintf("directory does not exist: %s", cfg.Logging.BasePath),
			})
		}
	}

	if cfg.Monitoring.Port < 1 || cfg.Monitoring.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "monitoring.port",
			Message: "must be between 1 and 65535",
		})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func validatePort(port PortConfig) ValidationErrors {
	var errors ValidationErrors

	if port.Name == "" {
		errors = append(errors, ValidationError{
			Field:   "port.name",
			Message: "device name is required",
		})
	}
	if port.FIFOSize < 2 {
		errors = append(errors, ValidationError{
			Field:   "port.fifo_size",
			Message: "must be at least 2",
		})
	}
	if port.XmitSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "port.xmit_size",
			Message: "must be at least 1",
		})
	}
	if port.WakeupChars < 1 || port.WakeupChars > port.XmitSize {
		errors = append(errors, ValidationError{
			Field:   "port.wakeup_chars",
			Message: fmt.Sprintf("must be between 1 and xmit_size (%d)", port.XmitSize),
		})
	}

	return errors
}

func validateFeed(feed FeedConfig, availableFeeds []string) ValidationErrors {
	var errors ValidationErrors

	name := strings.ToLower(feed.Name)
	known := name == "replay"
	for _, f := range availableFeeds {
		if name == f {
			known = true
		}
	}
	if !known {
		errors = append(errors, ValidationError{
			Field:   "feed.name",
			Message: fmt.Sprintf("unknown feed: %s (available: %s, replay)", feed.Name, strings.Join(availableFeeds, ", ")),
		})
	}

	if len(feed.Char) > 1 {
		errors = append(errors, ValidationError{
			Field:   "feed.char",
			Message: "must be a single character",
		})
	}

	if name == "replay" {
		if feed.SampleFile == "" {
			errors = append(errors, ValidationError{
				Field:   "feed.sample_file",
				Message: "sample_file is required for the replay feed",
			})
		} else if _, err := os.Stat(feed.SampleFile); os.IsNotExist(err) {
			errors = append(errors, ValidationError{
				Field:   "feed.sample_file",
				Message: fmt.Sprintf("file does not exist: %s", feed.SampleFile),
			})
		}
	}

	return errors
}

func validateSink(sink SinkConfig) ValidationErrors {
	var errors ValidationErrors

	switch strings.ToLower(sink.Type) {
	case "none", "stdout":
	case "file":
		if sink.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "sink.path",
				Message: "path is required for the file sink",
			})
		}
	case "serial":
		if sink.Device == "" {
			errors = append(errors, ValidationError{
				Field:   "sink.device",
				Message: "device is required for the serial sink",
			})
		}
		validBaudRates := []int{300, 1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}
		valid := false
		for _, b := range validBaudRates {
			if sink.BaudRate == b {
				valid = true
			}
		}
		if !valid {
			errors = append(errors, ValidationError{
				Field:   "sink.baud_rate",
				Message: fmt.Sprintf("invalid baud rate: %d", sink.BaudRate),
			})
		}
		switch sink.Parity {
		case "none", "odd", "even", "mark", "space":
		default:
			errors = append(errors, ValidationError{
				Field:   "sink.parity",
				Message: fmt.Sprintf("invalid parity: %s", sink.Parity),
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "sink.type",
			Message: fmt.Sprintf("invalid sink type: %s (must be none, stdout, file, or serial)", sink.Type),
		})
	}

	return errors
}
