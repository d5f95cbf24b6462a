package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pizza_orders_placed_total",
		Help: "Total number of orders placed",
	})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pizza_orders_rejected_total",
		Help: "Total number of rejected order placements",
	}, []string{"reason"})

	OrderPlacementLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pizza_order_placement_latency_seconds",
		Help:    "Latency of the order placement workflow",
		Buckets: prometheus.DefBuckets,
	})

	OrderStatusUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pizza_order_status_updates_total",
		Help: "Total number of order status changes",
	}, []string{"status"})

	NotificationsSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pizza_notifications_sent_total",
		Help: "Total number of operator notifications delivered",
	})

	NotificationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pizza_notifications_failed_total",
		Help: "Total number of operator notifications that failed",
	}, []string{"reason"})

	EventsPublishFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pizza_events_publish_failed_total",
		Help: "Total number of domain events that could not be published",
	}, []string{"type"})

	CatalogCacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pizza_catalog_cache_requests_total",
		Help: "Catalog cache lookups by result",
	}, []string{"result"})

	PizzaImagesStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pizza_images_stored_total",
		Help: "Total number of pizza images written to storage",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
