// Package metrics объявляет счётчики Prometheus для портала.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPRequestsTotal считает HTTP-запросы по пути и коду ответа.
var HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "portal_http_requests_total",
	Help: "Total number of HTTP requests handled by the portal.",
}, []string{"path", "code"})

// BotOperationsTotal считает операции панели управления ботом по результату.
var BotOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "portal_bot_operations_total",
	Help: "Bot control operations by operation and outcome.",
}, []string{"operation", "outcome"})

// CheckoutSessionsTotal считает сессии оформления подписки по результату.
var CheckoutSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "portal_checkout_sessions_total",
	Help: "Checkout sessions by outcome.",
}, []string{"outcome"})

// ReconcileChecksTotal считает сверки статуса подписки со шлюзом.
var ReconcileChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "portal_reconcile_checks_total",
	Help: "Subscription status reconciliations by result.",
}, []string{"result"})
