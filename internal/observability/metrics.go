package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// метрики конвейера для Prometheus
var (
	ListingsAssembled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_assembled_total",
		Help: "Количество обработанных записей по результату сборки",
	}, []string{"result"})

	ListingRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_rejections_total",
		Help: "Количество отклоненных записей по причине",
	}, []string{"reason"})

	TranslationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "listing_translation_failures_total",
		Help: "Количество неудачных переводов, замененных исходным текстом",
	})

	TranslationCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_translation_cache_total",
		Help: "Обращения к кэшу переводов",
	}, []string{"status"})

	PublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_publish_total",
		Help: "Количество попыток публикации карточек по статусу",
	}, []string{"status"})

	MediaUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_media_uploads_total",
		Help: "Количество загрузок изображений по статусу",
	}, []string{"status"})

	MarketplaceRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketplace_request_duration_seconds",
		Help:    "Длительность запросов к API маркетплейса",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "status"})

	Batches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_batches_total",
		Help: "Количество партий публикации по конечному состоянию",
	}, []string{"state"})

	ActiveBatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "marketplace_active_batches",
		Help: "Количество выполняющихся партий публикации",
	})

	ExportDocuments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "export_documents_total",
		Help: "Количество сформированных документов выгрузки по статусу",
	}, []string{"status"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Количество HTTP-запросов к API конвейера",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Длительность обработки HTTP-запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)
