package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobfinder_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	ProcessedItemsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobfinder_queue_items_processed_total",
			Help: "Total number of processed queue item stages by resulting status.",
		},
		[]string{"kind", "stage", "status"},
	)
	StageDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "jobfinder_stage_duration_seconds",
			Help:       "Duration of each pipeline stage.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"stage"},
	)
	FilterRejectionsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobfinder_filter_rejections_total",
			Help: "Total number of filter rejections by category and severity.",
		},
		[]string{"category", "severity"},
	)
	ScrapeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobfinder_scrape_duration_seconds",
			Help:    "Duration of source scrapes in seconds.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120},
		},
		[]string{"source_type"},
	)
	ScrapedPostingsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobfinder_scraped_postings_total",
			Help: "Total number of postings returned by scrapes.",
		},
		[]string{"source_type"},
	)
	DedupLookupsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobfinder_dedup_lookups_total",
			Help: "Deduplication lookups by outcome.",
		},
		[]string{"result"},
	)
	ScheduledSourcesCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobfinder_scheduled_sources_total",
			Help: "Total number of scrape requests created by the scheduler.",
		},
	)
	ReclaimedItemsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobfinder_queue_items_reclaimed_total",
			Help: "Total number of queue items requeued after their claim expired.",
		},
	)
	MatchesSavedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "jobfinder_matches_saved_total",
			Help: "Total number of saved job matches.",
		},
	)
	AiRequestsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobfinder_ai_requests_total",
			Help: "Total number of AI generate calls by outcome.",
		},
		[]string{"outcome"},
	)
)

func StartMetricsServer(address string) {

	prometheus.MustRegister(ErrorsCounter)
	prometheus.MustRegister(ProcessedItemsCounter)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(FilterRejectionsCounter)
	prometheus.MustRegister(ScrapeDuration)
	prometheus.MustRegister(ScrapedPostingsCounter)
	prometheus.MustRegister(DedupLookupsCounter)
	prometheus.MustRegister(ScheduledSourcesCounter)
	prometheus.MustRegister(ReclaimedItemsCounter)
	prometheus.MustRegister(MatchesSavedCounter)
	prometheus.MustRegister(AiRequestsCounter)

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Fatal(http.ListenAndServe(address, nil))
	}()
}
