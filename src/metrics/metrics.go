// SPDX-License-Identifier: MIT
// Package metrics declares the process-wide Prometheus collectors the
// scheduler loop and the inspection API update as they run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts every pass through the scheduler's main loop.
	CyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rocketry_scheduler_cycles_total",
			Help: "Total number of scheduler cycles run",
		},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rocketry_scheduler_cycle_duration_seconds",
			Help:    "Wall-clock duration of one scheduler cycle",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rocketry_scheduler_uptime_seconds",
			Help: "Seconds since the scheduler loop started",
		},
	)

	TasksRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rocketry_scheduler_tasks_registered",
			Help: "Number of tasks currently registered with the session",
		},
	)

	// TaskRunsTotal is incremented once per task run, labeled by its
	// terminal status (success/fail/terminate/crash).
	TaskRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rocketry_task_runs_total",
			Help: "Total number of task runs by terminal status",
		},
		[]string{"task", "status"},
	)

	TaskRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rocketry_task_run_duration_seconds",
			Help:    "Task run duration in seconds, from launch to terminal event",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
		[]string{"task"},
	)

	TasksRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rocketry_task_running",
			Help: "Number of tasks with an outstanding execution right now",
		},
	)

	// HTTPRequestsTotal and HTTPRequestDuration instrument the
	// inspection API's own handlers, labeled the same way the teacher
	// labels its request middleware.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rocketry_http_requests_total",
			Help: "Total number of inspection API requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rocketry_http_request_duration_seconds",
			Help:    "Inspection API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)
)
