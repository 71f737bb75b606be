// Copyright (c) 2026 TGVault. All rights reserved.
// Author: dev@tgvault.app

// Package metrics exposes Prometheus instrumentation for the API server.
//
// Counters are registered on a dedicated registry rather than the global
// default one so tests can construct isolated instances.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the application-level Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// AuthAttempts counts authentication attempts by outcome
	// ("success", "invalid_signature", "stale", "malformed").
	AuthAttempts *prometheus.CounterVec

	// SessionsActive tracks the current number of live sessions (best effort,
	// decremented on logout and cleanup).
	SessionsActive prometheus.Gauge

	// FileOperations counts storage operations by kind
	// ("upload", "download", "delete", "list") and outcome ("ok", "error").
	FileOperations *prometheus.CounterVec

	// UploadedBytes accumulates the total size of accepted uploads.
	UploadedBytes prometheus.Counter
}

// New constructs a Metrics instance with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	// Standard process and Go runtime collectors.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		AuthAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tgvault",
			Name:      "auth_attempts_total",
			Help:      "Authentication attempts by outcome.",
		}, []string{"outcome"}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tgvault",
			Name:      "sessions_active",
			Help:      "Approximate number of live sessions.",
		}),
		FileOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tgvault",
			Name:      "file_operations_total",
			Help:      "File storage operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		UploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tgvault",
			Name:      "uploaded_bytes_total",
			Help:      "Total bytes accepted across all uploads.",
		}),
	}

	registry.MustRegister(m.AuthAttempts, m.SessionsActive, m.FileOperations, m.UploadedBytes)

	return m
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
