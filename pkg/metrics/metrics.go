package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OrderTransitions counts committed order status transitions by target status.
var OrderTransitions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "resto_order_transitions_total",
		Help: "Number of committed order status transitions",
	},
	[]string{"status"},
)

// DeductionLines counts stock deduction line outcomes.
var DeductionLines = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "resto_deduction_lines_total",
		Help: "Number of stock deduction lines by outcome",
	},
	[]string{"outcome"},
)

// SinkFailures counts notification sink delivery failures.
var SinkFailures = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "resto_notification_sink_failures_total",
		Help: "Number of notification sink delivery failures",
	},
	[]string{"sink"},
)
