// Package metrics exposes Prometheus counters for the gateway plus a small
// locally mirrored snapshot for periodic log output.
package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/canlink/go-can-gateway/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters
var (
	BusRxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bus_rx_frames_total",
		Help: "Total CAN frames read from the SocketCAN interface.",
	})
	BusTxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bus_tx_frames_total",
		Help: "Total CAN frames written to the SocketCAN interface.",
	})
	BusErrFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bus_error_frames_total",
		Help: "Total kernel error frames received on the SocketCAN interface.",
	})
	TCPRxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tcp_rx_frames_total",
		Help: "Total frames received from TCP clients.",
	})
	TCPTxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tcp_tx_frames_total",
		Help: "Total frames sent to TCP clients.",
	})
	SerialTxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serial_tx_frames_total",
		Help: "Total frames written to the serial SLCAN sink.",
	})
	HubDroppedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hub_dropped_frames_total",
		Help: "Total frames dropped by the hub due to slow clients.",
	})
	HubKickedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hub_kicked_clients_total",
		Help: "Total clients disconnected due to backpressure kick policy.",
	})
	HubRejectedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hub_rejected_clients_total",
		Help: "Total client connection attempts rejected (e.g., max-clients).",
	})
	HubActiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_active_clients",
		Help: "Current number of active connected clients.",
	})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "malformed_frames_total",
		Help: "Total rejected malformed SLCAN lines from clients.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrTCPRead   = "tcp_read"
	ErrTCPWrite  = "tcp_write"
	ErrBusRead   = "bus_read"
	ErrBusWrite  = "bus_write"
	ErrSerialTx  = "serial_tx"
	ErrMalformed = "malformed"
)

// StartHTTP serves /metrics and /ready on the given address.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// InitBuildInfo publishes build metadata once at startup.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
}

// SetReadinessFunc installs the readiness probe backing /ready.
func SetReadinessFunc(fn func() bool) {
	readinessMu.Lock()
	readinessFn = fn
	readinessMu.Unlock()
}

// IsReady reports process readiness; false until a probe is installed.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	return fn != nil && fn()
}

// Local mirrored counters for easy logging (avoid Prometheus scraping in-process)
var (
	localBusRx      uint64
	localBusTx      uint64
	localBusErr     uint64
	localTCPRx      uint64
	localTCPTx      uint64
	localSerialTx   uint64
	localHubDrop    uint64
	localHubKick    uint64
	localHubReject  uint64
	localErrors     uint64
	localHubClients uint64
	localMalformed  uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	BusRx      uint64
	BusTx      uint64
	BusErr     uint64
	TCPRx      uint64
	TCPTx      uint64
	SerialTx   uint64
	HubDrops   uint64
	HubKicks   uint64
	HubRejects uint64
	Errors     uint64
	HubClients uint64
	Malformed  uint64
}

func Snap() Snapshot {
	return Snapshot{
		BusRx:      atomic.LoadUint64(&localBusRx),
		BusTx:      atomic.LoadUint64(&localBusTx),
		BusErr:     atomic.LoadUint64(&localBusErr),
		TCPRx:      atomic.LoadUint64(&localTCPRx),
		TCPTx:      atomic.LoadUint64(&localTCPTx),
		SerialTx:   atomic.LoadUint64(&localSerialTx),
		HubDrops:   atomic.LoadUint64(&localHubDrop),
		HubKicks:   atomic.LoadUint64(&localHubKick),
		HubRejects: atomic.LoadUint64(&localHubReject),
		Errors:     atomic.LoadUint64(&localErrors),
		HubClients: atomic.LoadUint64(&localHubClients),
		Malformed:  atomic.LoadUint64(&localMalformed),
	}
}

// Wrapper helpers to keep call sites simple.
func IncBusRx() { BusRxFrames.Inc(); atomic.AddUint64(&localBusRx, 1) }

func IncBusTx() { BusTxFrames.Inc(); atomic.AddUint64(&localBusTx, 1) }

func IncBusErr() { BusErrFrames.Inc(); atomic.AddUint64(&localBusErr, 1) }

func IncTCPRx() { TCPRxFrames.Inc(); atomic.AddUint64(&localTCPRx, 1) }

func AddTCPTx(n int) {
	TCPTxFrames.Add(float64(n))
	atomic.AddUint64(&localTCPTx, uint64(n))
}

func IncSerialTx() { SerialTxFrames.Inc(); atomic.AddUint64(&localSerialTx, 1) }

func IncHubDrop() { HubDroppedFrames.Inc(); atomic.AddUint64(&localHubDrop, 1) }

func IncHubKick() { HubKickedClients.Inc(); atomic.AddUint64(&localHubKick, 1) }

func IncHubReject() { HubRejectedClients.Inc(); atomic.AddUint64(&localHubReject, 1) }

func IncMalformed() { MalformedFrames.Inc(); atomic.AddUint64(&localMalformed, 1) }

func IncError(where string) {
	Errors.WithLabelValues(where).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// SetHubClients records the current client count.
func SetHubClients(n int) {
	HubActiveClients.Set(float64(n))
	atomic.StoreUint64(&localHubClients, uint64(n))
}
