// Console attached to the simulated serial line: keystrokes are queued
// into the transmit buffer (watch them drain half a FIFO per firing) and
// fabricated received bytes are echoed as they arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"time"

	"github.com/bdunix/tinyserial/sched"
	tinytty "github.com/bdunix/tinyserial/tty"
	"github.com/bdunix/tinyserial/uart"

	gotty "github.com/mattn/go-tty"
)

func main() {
	tick := flag.Duration("tick", time.Second, "Scheduling tick")
	delay := flag.Int("delay", 2, "Ticks between firings")
	fifo := flag.Int("fifo", 16, "FIFO size (half drained per firing)")
	xmit := flag.Int("xmit", 64, "Transmit ring capacity")
	wakeup := flag.Int("wakeup", 4, "Low-water mark for write wakeup")
	char := flag.String("char", "t", "Synthetic received character")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	port, err := uart.NewPort(uart.Config{
		Name:        "ttytiny0",
		FIFOSize:    *fifo,
		XmitSize:    *xmit,
		WakeupChars: *wakeup,
		Tick:        *tick,
		DelayTicks:  *delay,
	}, sched.NewTickScheduler(0), logger)
	if err != nil {
		log.Fatalf("Failed to create port: %v", err)
	}
	if *char != "" {
		c := (*char)[0]
		port.SetSource(func() (byte, bool) { return c, true })
	}
	port.SetWire(func(data []byte) {
		fmt.Printf("\r<< drained %q (%d pending)\n", data, port.PendingTx())
	})

	host, err := tinytty.Open(port, logger)
	if err != nil {
		log.Fatalf("Failed to open line: %v", err)
	}
	defer host.Close()

	keyboard, err := gotty.Open()
	if err != nil {
		log.Fatalf("Failed to open terminal: %v", err)
	}
	defer keyboard.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Printf("Simulated line open (tick %v, delay %d). Type to queue bytes, Ctrl-C or q to quit.\n", *tick, *delay)

	go func() {
		buf := make([]byte, 16)
		for {
			n, err := host.Read(ctx, buf)
			if err != nil {
				return
			}
			fmt.Printf("\r>> received %q\n", buf[:n])
		}
	}()

	for {
		r, err := keyboard.ReadRune()
		if err != nil {
			log.Printf("Keyboard read failed: %v", err)
			return
		}
		if r == 'q' || r == 3 { // Ctrl-C
			fmt.Println("\rBye.")
			return
		}
		n, err := host.Write(ctx, []byte(string(r)))
		if err != nil {
			return
		}
		fmt.Printf("\r   queued %q (%d bytes, %d pending)\n", r, n, port.PendingTx())
	}
}
