package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	clicksRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lurewatch_clicks_recorded_total",
			Help: "Number of lure page visits recorded",
		},
	)

	submissionsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lurewatch_submissions_recorded_total",
			Help: "Number of form submissions recorded",
		},
	)
)
