package lobby

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var readyUpTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "trivia",
	Subsystem: "lobby",
	Name:      "ready_up_total",
	Help:      "Ready-up requests by outcome.",
}, []string{"outcome"})

const (
	outcomeAccepted      = "accepted"
	outcomeTransitioned  = "transitioned"
	outcomeRejected      = "rejected"
	outcomeInternalError = "internal_error"
)
