package compiler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	CompileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "weaveio_compile_seconds",
		Help:    "Time spent compiling a query graph.",
		Buckets: prometheus.DefBuckets,
	})

	CompileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weaveio_compile_total",
		Help: "Total number of compilations by outcome.",
	}, []string{"outcome"})

	StepsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weaveio_steps_emitted_total",
		Help: "Total number of steps emitted by edge kind.",
	}, []string{"kind"})

	CheckpointsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weaveio_checkpoints_total",
		Help: "Total number of checkpoints inserted to preserve row state.",
	})

	BranchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "weaveio_branches_total",
		Help: "Total number of aggregation branches compiled.",
	})
)
