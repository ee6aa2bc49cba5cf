// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the transfer collectors. A nil *Metrics records nothing.
type Metrics struct {
	outcomes    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	uploadBytes prometheus.Counter
}

// NewMetrics builds the collectors and registers them on reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apkclient",
			Name:      "transfer_outcomes_total",
			Help:      "Completed transfers by operation and outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "apkclient",
			Name:      "transfer_duration_seconds",
			Help:      "Time from dispatch to completion of a network call.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"operation"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "apkclient",
			Name:      "upload_bytes_total",
			Help:      "Payload bytes sent by file uploads.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes, m.duration, m.uploadBytes)
	}
	return m
}

func (m *Metrics) observe(op Operation, kind OutcomeKind, took time.Duration) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(op), kind.String()).Inc()
	m.duration.WithLabelValues(string(op)).Observe(took.Seconds())
}

// countLocal records a transfer that failed before reaching the network.
func (m *Metrics) countLocal(op Operation, kind ErrorKind) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(op), strings.ToLower(string(kind))).Inc()
}

func (m *Metrics) addUploadBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.uploadBytes.Add(float64(n))
}
