package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QuestionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "biokg_question_duration_seconds",
			Help:    "Question pipeline duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"intent"},
	)

	QuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biokg_questions_total",
			Help: "Total questions answered",
		},
		[]string{"intent", "status"},
	)

	EntitiesExtracted = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "biokg_entities_extracted",
			Help:    "Entities recognized per question",
			Buckets: []float64{0, 1, 2, 3, 5, 10},
		},
	)

	GraphQueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "biokg_graph_query_duration_seconds",
			Help:    "Graph query execution duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	RowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "biokg_rows_returned",
			Help:    "Rows returned per executed query",
			Buckets: []float64{0, 1, 5, 10, 20, 50},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biokg_cache_hits_total",
			Help: "Total answer cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biokg_cache_misses_total",
			Help: "Total answer cache misses",
		},
		[]string{"cache_type"},
	)

	TemplateQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biokg_template_queries_total",
			Help: "Direct template endpoint executions",
		},
		[]string{"template", "status"},
	)
)

func Init() {
	prometheus.MustRegister(QuestionDuration)
	prometheus.MustRegister(QuestionsTotal)
	prometheus.MustRegister(EntitiesExtracted)
	prometheus.MustRegister(GraphQueryDuration)
	prometheus.MustRegister(RowsReturned)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(TemplateQueriesTotal)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
