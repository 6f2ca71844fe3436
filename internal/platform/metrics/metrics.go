package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Classifier はエラーをメトリクスの result ラベル値へ変換します。nil は "ok" を返すことが期待されます。
type Classifier func(error) string

// Recorder は台帳・ワークフロー・gRPC のメトリクスを保持します。
type Recorder struct {
	registry *prometheus.Registry
	classify Classifier

	ledgerOps          *prometheus.CounterVec
	transitions        *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	rpcRequests        *prometheus.CounterVec
	rpcDuration        *prometheus.HistogramVec
}

// New は専用レジストリを持つ Recorder を生成します。
func New(classify Classifier) *Recorder {
	if classify == nil {
		classify = defaultClassifier
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		classify: classify,
		ledgerOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leave_ledger_operations_total",
			Help: "Leave balance ledger operations, labeled by operation and result",
		}, []string{"operation", "result"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leave_workflow_transitions_total",
			Help: "Leave request workflow transitions, labeled by action and result",
		}, []string{"action", "result"}),
		transitionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "leave_workflow_duration_seconds",
			Help:    "Latency of leave request workflow operations",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"action"}),
		rpcRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "grpc_requests_total",
			Help: "gRPC requests handled, labeled by method and status code",
		}, []string{"method", "code"}),
		rpcDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grpc_request_duration_seconds",
			Help:    "Latency distribution of gRPC requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

func defaultClassifier(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

// ObserveLedger は台帳操作を 1 件記録します。
func (r *Recorder) ObserveLedger(operation string, err error) {
	r.ledgerOps.WithLabelValues(operation, r.classify(err)).Inc()
}

// ObserveTransition はワークフロー操作を 1 件記録します。
func (r *Recorder) ObserveTransition(action string, err error, elapsed time.Duration) {
	r.transitions.WithLabelValues(action, r.classify(err)).Inc()
	r.transitionDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// ObserveRPC は gRPC リクエストを 1 件記録します。
func (r *Recorder) ObserveRPC(method, code string, elapsed time.Duration) {
	r.rpcRequests.WithLabelValues(method, code).Inc()
	r.rpcDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Handler は /metrics 用の HTTP ハンドラを返します。
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry は内部レジストリを返します。
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
