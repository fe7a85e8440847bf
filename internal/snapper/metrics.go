package snapper

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/roach88/tanglegraph/internal/solve"
)

const instrumentationName = "github.com/roach88/tanglegraph/snapper"

// Metric names.
const (
	MetricRuns           = "tanglegraph_runs_total"
	MetricClusters       = "tanglegraph_clusters_total"
	MetricForced         = "tanglegraph_forced_assignments_total"
	MetricContradictions = "tanglegraph_contradictions_total"
	MetricUnresolved     = "tanglegraph_unresolved_nodes_total"
	MetricClusterSize    = "tanglegraph_cluster_nodes"
	MetricRunDuration    = "tanglegraph_run_duration_seconds"
)

type instruments struct {
	runs           metric.Int64Counter
	clusters       metric.Int64Counter
	forced         metric.Int64Counter
	contradictions metric.Int64Counter
	unresolved     metric.Int64Counter
	clusterSize    metric.Int64Histogram
	runDuration    metric.Float64Histogram
}

// newInstruments creates the run instruments on meter. Instruments that
// fail to register fall back to no-ops and the failure is logged once, so
// a broken meter degrades observability without failing runs.
func newInstruments(meter metric.Meter, logger *slog.Logger) *instruments {
	fallback := noop.NewMeterProvider().Meter(instrumentationName)
	var failed []string

	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			failed = append(failed, name+": "+err.Error())
			c, _ = fallback.Int64Counter(name)
		}
		return c
	}

	ins := &instruments{
		runs:           counter(MetricRuns, "Completed snapper runs"),
		clusters:       counter(MetricClusters, "Clusters processed"),
		forced:         counter(MetricForced, "Arcs oriented by the forced fallback"),
		contradictions: counter(MetricContradictions, "Contradictions reported by the consistency checker"),
		unresolved:     counter(MetricUnresolved, "Nodes whose reconciled outcome is not success"),
	}

	var err error
	ins.clusterSize, err = meter.Int64Histogram(MetricClusterSize,
		metric.WithDescription("Nodes per cluster"),
	)
	if err != nil {
		failed = append(failed, MetricClusterSize+": "+err.Error())
		ins.clusterSize, _ = fallback.Int64Histogram(MetricClusterSize)
	}
	ins.runDuration, err = meter.Float64Histogram(MetricRunDuration,
		metric.WithDescription("Wall time of a complete run"),
		metric.WithUnit("s"),
	)
	if err != nil {
		failed = append(failed, MetricRunDuration+": "+err.Error())
		ins.runDuration, _ = fallback.Float64Histogram(MetricRunDuration)
	}

	if len(failed) > 0 {
		logger.Error("failed to initialize some snapper metrics (observability degraded)",
			slog.Int("failed_count", len(failed)),
			slog.Any("errors", failed),
		)
	}
	return ins
}

func (ins *instruments) recordCluster(ctx context.Context, cr *ClusterResult) {
	policy := metric.WithAttributes(attribute.String("policy", cr.Policy.String()))
	ins.clusters.Add(ctx, 1, policy)
	ins.clusterSize.Record(ctx, int64(cr.NodeCount), policy)
	if cr.Forced > 0 {
		ins.forced.Add(ctx, int64(cr.Forced))
	}
	if cr.Summary != nil && cr.Summary.Unresolved > 0 {
		ins.unresolved.Add(ctx, int64(cr.Summary.Unresolved), policy)
	}
	if cr.Report != nil {
		for code, n := range cr.Report.Counts() {
			ins.contradictions.Add(ctx, int64(n),
				metric.WithAttributes(attribute.String("code", string(code))))
		}
	}
}

func (ins *instruments) recordRun(ctx context.Context, policy solve.Policy, seconds float64, ok bool) {
	attrs := metric.WithAttributes(
		attribute.String("policy", policy.String()),
		attribute.Bool("consistent", ok),
	)
	ins.runs.Add(ctx, 1, attrs)
	ins.runDuration.Record(ctx, seconds, attrs)
}
