// Package metrics exposes Prometheus instrumentation for the
// decentralization core, grounded on the teacher's observability package.
// Only the core's own operations are instrumented here; network, storage,
// and scheduling concerns are out of scope (spec §1/§9 non-goals).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ScoresComputed counts scores computed by rules.Check, labeled by caller
// ("rules.Check"). Scores the change engine computes while searching are
// not counted.
var ScoresComputed = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "subnetctl",
	Subsystem: "nakamoto",
	Name:      "scores_computed_total",
	Help:      "Total Nakamoto scores computed, by caller.",
}, []string{"caller"})

// RuleChecks counts business-rule evaluations, labeled by outcome
// ("pass" or the violation's snake_case name, e.g.
// "feature_super_majority").
var RuleChecks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "subnetctl",
	Subsystem: "rules",
	Name:      "checks_total",
	Help:      "Total business-rule checks, by outcome.",
}, []string{"outcome"})

// OptimizeDuration tracks how long a single Optimize search takes.
var OptimizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "subnetctl",
	Subsystem: "changeengine",
	Name:      "optimize_duration_seconds",
	Help:      "Wall-clock duration of an Optimize search.",
	Buckets:   prometheus.DefBuckets,
})

// OptimizeSteps counts how many remove/add steps an Optimize run actually
// took before converging or exhausting its budget.
var OptimizeSteps = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "subnetctl",
	Subsystem: "changeengine",
	Name:      "optimize_steps",
	Help:      "Number of remove/add steps taken by an Optimize run.",
	Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
})

// MembershipChanges counts committed SubnetChanges by reason
// (extend/optimize/replace/no_op).
var MembershipChanges = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "subnetctl",
	Subsystem: "changeengine",
	Name:      "membership_changes_total",
	Help:      "Total committed subnet membership changes, by reason.",
}, []string{"reason"})

// SubnetMinCoefficient tracks the last-observed Min aggregate for a given
// subnet id, for alerting on decentralization regressions.
var SubnetMinCoefficient = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "subnetctl",
	Subsystem: "nakamoto",
	Name:      "subnet_min_coefficient",
	Help:      "Most recently observed minimum Nakamoto coefficient for a subnet.",
}, []string{"subnet_id"})
