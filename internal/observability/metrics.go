package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// File results recorded by RecordFile.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
)

var (
	registerOnce sync.Once
	registry     = prometheus.NewRegistry()

	compileFiles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buffham",
			Subsystem: "compiler",
			Name:      "files_total",
			Help:      "Schema files processed, by result.",
		},
		[]string{"result"},
	)
	compileMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "buffham",
			Subsystem: "compiler",
			Name:      "messages_total",
			Help:      "Messages parsed from successfully compiled schema files.",
		},
	)
	generateOutputs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buffham",
			Subsystem: "gen",
			Name:      "outputs_total",
			Help:      "Generated outputs, by backend and success.",
		},
		[]string{"backend", "success"},
	)
	generateBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "buffham",
			Subsystem: "gen",
			Name:      "output_bytes_total",
			Help:      "Bytes of generated source, by backend.",
		},
		[]string{"backend"},
	)
	generateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "buffham",
			Subsystem: "gen",
			Name:      "duration_seconds",
			Help:      "Time to build and render one output.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"backend"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		registry.MustRegister(compileFiles, compileMessages, generateOutputs, generateBytes, generateDuration)
	})
}

// Gatherer exposes the metrics registry.
func Gatherer() prometheus.Gatherer {
	RegisterMetrics()
	return registry
}

func RecordFile(result string, messages int) {
	RegisterMetrics()
	compileFiles.WithLabelValues(result).Inc()
	if result == ResultOK {
		compileMessages.Add(float64(messages))
	}
}

func RecordOutput(backend string, bytes int, duration time.Duration, success bool) {
	RegisterMetrics()
	generateOutputs.WithLabelValues(backend, strconv.FormatBool(success)).Inc()
	if success {
		generateBytes.WithLabelValues(backend).Add(float64(bytes))
	}
	generateDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// WriteTextfile writes every metric in the text exposition format, for the
// node exporter textfile collector.
func WriteTextfile(path string) error {
	RegisterMetrics()
	return prometheus.WriteToTextfile(path, registry)
}
