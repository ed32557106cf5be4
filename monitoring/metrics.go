package monitoring

import (
	"fmt"
	"net/http"
)

// MetricsHandler serves /metrics in Prometheus text format.
type MetricsHandler struct {
	provider StatusProvider
}

// NewMetricsHandler creates a new metrics handler.
func NewMetricsHandler(provider StatusProvider) *MetricsHandler {
	return &MetricsHandler{provider: provider}
}

// ServeHTTP handles the /metrics endpoint.
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := h.provider.Status()
	port := st.Port.Name

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	fmt.Fprintln(w, "# HELP tinyserial_tx_bytes_total Bytes drained from the transmit buffer")
	fmt.Fprintln(w, "# TYPE tinyserial_tx_bytes_total counter")
	fmt.Fprintf(w, "tinyserial_tx_bytes_total{port=%q} %d\n", port, st.Port.Counters.TxBytes)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP tinyserial_rx_bytes_total Synthetic bytes injected into the receive path")
	fmt.Fprintln(w, "# TYPE tinyserial_rx_bytes_total counter")
	fmt.Fprintf(w, "tinyserial_rx_bytes_total{port=%q} %d\n", port, st.Port.Counters.RxBytes)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP tinyserial_timer_firings_total Line timer firings")
	fmt.Fprintln(w, "# TYPE tinyserial_timer_firings_total counter")
	fmt.Fprintf(w, "tinyserial_timer_firings_total{port=%q} %d\n", port, st.Port.Counters.Firings)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP tinyserial_wakeups_total Write wakeup signals emitted")
	fmt.Fprintln(w, "# TYPE tinyserial_wakeups_total counter")
	fmt.Fprintf(w, "tinyserial_wakeups_total{port=%q} %d\n", port, st.Port.Counters.Wakeups)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP tinyserial_rx_overflow_total Received bytes dropped by the upper layer")
	fmt.Fprintln(w, "# TYPE tinyserial_rx_overflow_total counter")
	fmt.Fprintf(w, "tinyserial_rx_overflow_total{port=%q} %d\n", port, st.RxOverflow)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP tinyserial_pending_tx_bytes Bytes waiting in the transmit buffer")
	fmt.Fprintln(w, "# TYPE tinyserial_pending_tx_bytes gauge")
	fmt.Fprintf(w, "tinyserial_pending_tx_bytes{port=%q} %d\n", port, st.Port.PendingTx)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP tinyserial_port_up Port status (1=open, 0=closed)")
	fmt.Fprintln(w, "# TYPE tinyserial_port_up gauge")
	up := 0
	if st.Port.Open {
		up = 1
	}
	fmt.Fprintf(w, "tinyserial_port_up{port=%q,tx_state=%q} %d\n", port, st.Port.TxState, up)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP tinyserial_sink_bytes_total Bytes forwarded to the drain sink")
	fmt.Fprintln(w, "# TYPE tinyserial_sink_bytes_total counter")
	fmt.Fprintf(w, "tinyserial_sink_bytes_total{device=%q} %d\n", st.SinkDevice, st.Sink.BytesSent)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "# HELP tinyserial_sink_errors_total Sink write errors")
	fmt.Fprintln(w, "# TYPE tinyserial_sink_errors_total counter")
	fmt.Fprintf(w, "tinyserial_sink_errors_total{device=%q} %d\n", st.SinkDevice, st.Sink.Errors)
}
