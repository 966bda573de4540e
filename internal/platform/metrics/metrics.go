// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics exposes the Prometheus collectors shared by the API server and
the generation worker.

Collectors are registered on the default registry at init time through
promauto, so importing the package is enough to make them visible on /metrics.

Families:

  - http: request counts and latency, labelled by route pattern.
  - essay: plans created, generation outcomes and duration.
  - llm: provider call counts and latency.
  - queue: stream messages processed by the worker.
*/
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "refgen"

// # HTTP

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"method", "route"},
	)
)

// # Essays

var (
	EssayPlansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "essay",
			Name:      "plans_total",
			Help:      "Total number of plan requests by outcome",
		},
		[]string{"outcome"},
	)

	EssayGenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "essay",
			Name:      "generation_total",
			Help:      "Total number of finished essay generations by outcome",
		},
		[]string{"outcome"},
	)

	EssayGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "essay",
			Name:      "generation_duration_seconds",
			Help:      "Full essay generation duration in seconds",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200},
		},
	)
)

// # LLM

var (
	LLMCallTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_total",
			Help:      "Total number of LLM calls",
		},
		[]string{"provider", "model", "status"},
	)

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "LLM call duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "model"},
	)
)

// # Queue

var (
	QueueMessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "messages_processed_total",
			Help:      "Total number of stream messages handled by the worker",
		},
		[]string{"stream", "status"},
	)
)

// Outcome labels shared by the essay and queue counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)
