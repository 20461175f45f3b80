package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	OrdersTotal           prometheus.Counter
	DiscountedOrdersTotal prometheus.Counter
	StockUpdateFailures   prometheus.Counter
	OrderAmount           prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		OrdersTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "botica_orders_total",
			Help: "Total number of completed checkout orders",
		}),
		DiscountedOrdersTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "botica_discounted_orders_total",
			Help: "Total number of orders with a senior discount applied",
		}),
		StockUpdateFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "botica_stock_update_failures_total",
			Help: "Total number of per-item stock writes that failed during checkout",
		}),
		OrderAmount: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "botica_order_amount",
			Help:    "Final charged amount per order",
			Buckets: prometheus.ExponentialBuckets(10, 2.5, 8),
		}),
	}
}

func (m *Metrics) RecordOrder(finalAmount float64, discounted bool) {
	m.OrdersTotal.Inc()
	if discounted {
		m.DiscountedOrdersTotal.Inc()
	}
	m.OrderAmount.Observe(finalAmount)
}

func (m *Metrics) RecordStockFailure() {
	m.StockUpdateFailures.Inc()
}
