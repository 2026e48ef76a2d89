package question

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// provisionTier counts per-tier outcomes so fallback behavior is observable.
var provisionTier = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "trivia",
	Subsystem: "question",
	Name:      "provision_tier_total",
	Help:      "Provisioning attempts by tier and outcome (served, empty, error).",
}, []string{"tier", "outcome"})

const (
	outcomeServed = "served"
	outcomeEmpty  = "empty"
	outcomeError  = "error"
)
