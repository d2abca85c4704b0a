package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "composer_submissions_total",
			Help: "Post submissions by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	sideEffectFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "composer_side_effect_failures_total",
			Help: "Post-commit side effects that failed and were swallowed",
		},
		[]string{"effect"},
	)
)
