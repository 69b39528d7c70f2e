package logger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// ErrorTypeField classifies error entries for the errors metric.
const ErrorTypeField = "error_type"

const (
	ErrorTypeDb       = "db"
	ErrorTypeAiApi    = "ai_api"
	ErrorTypeScrape   = "scrape"
	ErrorTypePipeline = "pipeline"
	ErrorTypeTgApi    = "tg_api"
	ErrorTypeConfig   = "config"

	errorTypeUnknown = "unknown"
)

var errorTypes = []string{
	ErrorTypeDb, ErrorTypeAiApi, ErrorTypeScrape, ErrorTypePipeline, ErrorTypeTgApi, ErrorTypeConfig,
}

// prometheusHook counts error entries by error type. Entries without a known
// type are counted as unknown, so the label set stays fixed.
type prometheusHook struct {
	counter *prometheus.CounterVec
}

func newPrometheusHook(counter *prometheus.CounterVec) *prometheusHook {
	// every series exists from startup, an error rate of zero is still reported
	for _, errorType := range append(errorTypes, errorTypeUnknown) {
		counter.WithLabelValues(errorType)
	}
	return &prometheusHook{counter: counter}
}

func (h *prometheusHook) Fire(entry *log.Entry) error {
	h.counter.WithLabelValues(errorTypeOf(entry)).Inc()
	return nil
}

func (h *prometheusHook) Levels() []log.Level {
	return log.AllLevels[:log.ErrorLevel+1]
}

func errorTypeOf(entry *log.Entry) string {
	errorType, ok := entry.Data[ErrorTypeField].(string)
	if !ok || !lo.Contains(errorTypes, errorType) {
		return errorTypeUnknown
	}
	return errorType
}
