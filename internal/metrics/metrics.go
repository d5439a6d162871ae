package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourorg/spaces-transfer/internal/transfer"
)

var (
	TransfersStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spaces",
		Name:      "transfers_started_total",
		Help:      "Transfers that reached Pending.",
	}, []string{"direction"})
	TransfersCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spaces",
		Name:      "transfers_completed_total",
		Help:      "Transfers that completed successfully.",
	}, []string{"direction"})
	TransfersFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spaces",
		Name:      "transfers_failed_total",
		Help:      "Transfers that failed, by error kind.",
	}, []string{"direction", "kind"})
	TransferBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spaces",
		Name:      "transfer_bytes_total",
		Help:      "Bytes moved by completed transfers.",
	}, []string{"direction"})
)

// Init registers collectors with reg; call once from main.
func Init(reg prometheus.Registerer) {
	reg.MustRegister(TransfersStarted, TransfersCompleted, TransfersFailed, TransferBytes)
}

// Serve starts a /metrics server on the given addr (e.g., ":9090"). Blocks; run in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

// Observer counts transfer outcomes.
type Observer struct{}

func (Observer) OnEvent(e transfer.Event) {
	dir := e.Direction.String()
	switch e.State {
	case transfer.Pending:
		TransfersStarted.WithLabelValues(dir).Inc()
	case transfer.Completed:
		TransfersCompleted.WithLabelValues(dir).Inc()
		TransferBytes.WithLabelValues(dir).Add(float64(e.BytesCurrent))
	case transfer.Failed:
		TransfersFailed.WithLabelValues(dir, kindLabel(e.Err)).Inc()
	}
}

func kindLabel(err error) string {
	switch kind := transfer.KindOf(err); {
	case kind == nil:
		return "unknown"
	case errors.Is(kind, transfer.ErrNotFound):
		return "not_found"
	case errors.Is(kind, transfer.ErrAccessDenied):
		return "access_denied"
	case errors.Is(kind, transfer.ErrCanceled):
		return "canceled"
	case errors.Is(kind, transfer.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(kind, transfer.ErrLocalIO):
		return "local_io"
	default:
		return "remote"
	}
}
