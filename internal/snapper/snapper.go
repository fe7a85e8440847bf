// Package snapper orchestrates a complete resolution run over a pool of
// tangency nodes.
//
// A run validates the pool, records its maximum degree, decomposes it
// into clusters, orients and orders every cluster, executes the node
// solvers under the agreement policy, and verifies the propagated
// outcomes. Clusters share nothing, so they may be processed in parallel
// (WithConcurrency); within a cluster solvers always run in stack order.
//
// A Snapper runs once. Its methods are not safe for concurrent use.
package snapper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/tanglegraph/internal/graph"
	"github.com/roach88/tanglegraph/internal/order"
	"github.com/roach88/tanglegraph/internal/orient"
	"github.com/roach88/tanglegraph/internal/solve"
	"github.com/roach88/tanglegraph/internal/verify"
)

var (
	// ErrAlreadyRun is returned by Run and Prepare after a completed run.
	ErrAlreadyRun = errors.New("snapper already ran")

	// ErrReleased is returned once Cleanup has released the graph.
	ErrReleased = errors.New("snapper resources released")
)

// PolicySelector chooses the agreement policy for one cluster.
type PolicySelector func(c *graph.Cluster) solve.Policy

type stage int

const (
	stageNew stage = iota
	stagePrepared
	stageRun
	stageReleased
)

// ClusterResult describes one processed cluster. It holds detached
// records only and stays valid after Cleanup.
type ClusterResult struct {
	Index     int            `json:"index"`
	Policy    solve.Policy   `json:"policy"`
	NodeCount int            `json:"node_count"`
	ArcCount  int            `json:"arc_count"`
	MaxDegree int            `json:"max_degree"`
	Forced    int            `json:"forced"`
	Roots     []graph.NodeID `json:"roots"`
	Stack     []graph.NodeID `json:"stack"`
	Steps     []orient.Step  `json:"steps"`
	Nodes     []NodeRecord   `json:"nodes"`
	Arcs      []ArcRecord    `json:"arcs"`

	// Summary and Report are nil until the cluster is executed.
	Summary *solve.Summary `json:"summary,omitempty"`
	Report  *verify.Report `json:"report,omitempty"`
}

// OK reports whether the cluster verified without contradictions.
func (cr *ClusterResult) OK() bool { return cr.Report == nil || cr.Report.OK() }

// Result summarizes a completed run.
type Result struct {
	RunID     string       `json:"run_id"`
	Policy    solve.Policy `json:"policy"`
	MaxDegree int          `json:"max_degree"`
	Nodes     int          `json:"nodes"`
	Arcs      int          `json:"arcs"`

	Forced         int `json:"forced"`
	Resolved       int `json:"resolved"`
	Unresolved     int `json:"unresolved"`
	Contradictions int `json:"contradictions"`

	Clusters []*ClusterResult `json:"clusters"`
	Duration time.Duration    `json:"duration_ns"`
}

// OK reports whether every cluster verified without contradictions.
func (r *Result) OK() bool { return r.Contradictions == 0 }

// AllContradictions returns every contradiction of the run in cluster
// order.
func (r *Result) AllContradictions() []verify.Contradiction {
	var out []verify.Contradiction
	for _, cr := range r.Clusters {
		if cr.Report != nil {
			out = append(out, cr.Report.Contradictions...)
		}
	}
	return out
}

// Option configures a Snapper.
type Option func(*Snapper)

// WithPolicy sets the agreement policy applied to every cluster.
func WithPolicy(p solve.Policy) Option {
	return func(s *Snapper) { s.policy = p }
}

// WithPolicySelector chooses the policy per cluster; it takes precedence
// over WithPolicy.
func WithPolicySelector(sel PolicySelector) Option {
	return func(s *Snapper) { s.selector = sel }
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(s *Snapper) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConcurrency sets how many clusters are processed at once. Values
// below 1 mean sequential processing. With n > 1 the registered solvers
// must be safe for concurrent use.
func WithConcurrency(n int) Option {
	return func(s *Snapper) {
		if n < 1 {
			n = 1
		}
		s.concurrency = n
	}
}

// WithMeterProvider sets the metrics provider. Defaults to the global
// otel provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Snapper) {
		if mp != nil {
			s.meterProvider = mp
		}
	}
}

// WithTracerProvider sets the tracing provider. Defaults to the global
// otel provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Snapper) {
		if tp != nil {
			s.tracerProvider = tp
		}
	}
}

// WithRunIDGenerator sets the run identity source. Defaults to UUIDv7.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(s *Snapper) {
		if g != nil {
			s.runIDs = g
		}
	}
}

// Snapper runs the resolution pipeline over one pool.
type Snapper struct {
	pool           *graph.Pool
	executor       *solve.Executor
	policy         solve.Policy
	selector       PolicySelector
	logger         *slog.Logger
	concurrency    int
	runIDs         RunIDGenerator
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer
	ins            *instruments

	stage     stage
	failed    error
	runID     string
	maxDegree int
	nodeCount int
	arcCount  int
	clusters  []*graph.Cluster
	results   []*ClusterResult
	result    *Result
}

// New creates a Snapper over pool using the solvers in registry.
// The default policy is Strong.
func New(pool *graph.Pool, registry *solve.Registry, opts ...Option) *Snapper {
	if pool == nil {
		pool = graph.NewPool()
	}
	s := &Snapper{
		pool:           pool,
		policy:         solve.Strong,
		logger:         slog.Default(),
		concurrency:    1,
		runIDs:         UUIDv7Generator{},
		meterProvider:  otel.GetMeterProvider(),
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	s.ins = newInstruments(s.meterProvider.Meter(instrumentationName), s.logger)
	s.executor = solve.NewExecutor(registry, s.logger)
	return s
}

// NewStrong creates a Snapper requiring agreement across every arc.
func NewStrong(pool *graph.Pool, registry *solve.Registry, opts ...Option) *Snapper {
	return New(pool, registry, append([]Option{WithPolicy(solve.Strong)}, opts...)...)
}

// NewWeak creates a Snapper requiring agreement across at least one arc.
func NewWeak(pool *graph.Pool, registry *solve.Registry, opts ...Option) *Snapper {
	return New(pool, registry, append([]Option{WithPolicy(solve.Weak)}, opts...)...)
}

// NewNoSnap creates a Snapper that keeps every solver outcome as is.
func NewNoSnap(pool *graph.Pool, registry *solve.Registry, opts ...Option) *Snapper {
	return New(pool, registry, append([]Option{WithPolicy(solve.NoSnap)}, opts...)...)
}

// Prepare validates and decomposes the pool and orients and orders every
// cluster, without running any solver. Run calls it when needed.
//
// A structural violation of the pool is returned as a wrapped
// *graph.StructuralError and is fatal to the Snapper.
func (s *Snapper) Prepare(ctx context.Context) error {
	switch s.stage {
	case stagePrepared:
		return nil
	case stageRun:
		return ErrAlreadyRun
	case stageReleased:
		return ErrReleased
	}
	if s.failed != nil {
		return s.failed
	}

	s.runID = s.runIDs.Generate()
	ctx, span := s.tracer.Start(ctx, "snapper.Prepare",
		trace.WithAttributes(
			attribute.String("run.id", s.runID),
			attribute.Int("pool.nodes", s.pool.Len()),
			attribute.Int("pool.arcs", s.pool.ArcCount()),
		),
	)
	defer span.End()

	if err := s.prepare(ctx); err != nil {
		s.failed = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("prepare failed", "run_id", s.runID, "error", err)
		return err
	}
	span.SetAttributes(
		attribute.Int("pool.max_degree", s.maxDegree),
		attribute.Int("clusters", len(s.clusters)),
	)
	s.stage = stagePrepared
	return nil
}

func (s *Snapper) prepare(ctx context.Context) error {
	if err := s.pool.Validate(); err != nil {
		return fmt.Errorf("validate pool: %w", err)
	}
	s.maxDegree = graph.MaxDegree(s.pool.Nodes())
	s.nodeCount = s.pool.Len()
	s.arcCount = s.pool.ArcCount()

	clusters, err := graph.Decompose(s.pool)
	if err != nil {
		return fmt.Errorf("decompose pool: %w", err)
	}
	s.clusters = clusters
	s.results = make([]*ClusterResult, len(clusters))

	s.logger.Debug("pool decomposed",
		"run_id", s.runID, "nodes", s.nodeCount, "arcs", s.arcCount,
		"clusters", len(clusters), "max_degree", s.maxDegree)

	return s.forEachCluster(func(i int, c *graph.Cluster) error {
		policy := s.policyFor(c)
		if !policy.Valid() {
			return fmt.Errorf("cluster %d: invalid policy %d", c.Index(), int(policy))
		}
		res, err := orient.Orient(c, orient.WithLogger(s.logger))
		if err != nil {
			return err
		}
		stack, err := order.Build(c)
		if err != nil {
			return err
		}
		s.results[i] = &ClusterResult{
			Index:     c.Index(),
			Policy:    policy,
			NodeCount: c.Len(),
			ArcCount:  c.ArcCount(),
			MaxDegree: c.MaxDegree(),
			Forced:    res.Forced,
			Roots:     idsOf(res.Roots),
			Stack:     idsOf(stack),
			Steps:     res.Steps,
			Nodes:     nodeRecords(c.Nodes()),
			Arcs:      arcRecords(c.Arcs()),
		}
		if res.Forced > 0 {
			s.logger.Debug("cluster needed forced orientation",
				"run_id", s.runID, "cluster", c.Index(), "forced", res.Forced, "arcs", c.ArcCount())
		}
		return nil
	})
}

// Run executes the whole pipeline and returns the run result. Solver
// failures and contradictions are reported in the result, never as an
// error.
func (s *Snapper) Run(ctx context.Context) (*Result, error) {
	switch s.stage {
	case stageRun:
		return nil, ErrAlreadyRun
	case stageReleased:
		return nil, ErrReleased
	}
	start := time.Now()

	if err := s.Prepare(ctx); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "snapper.Run",
		trace.WithAttributes(
			attribute.String("run.id", s.runID),
			attribute.String("policy", s.policy.String()),
			attribute.Int("clusters", len(s.clusters)),
		),
	)
	defer span.End()

	s.logger.Info("run started",
		"run_id", s.runID, "policy", s.policy.String(),
		"nodes", s.nodeCount, "arcs", s.arcCount,
		"clusters", len(s.clusters), "max_degree", s.maxDegree)

	err := s.forEachCluster(func(i int, c *graph.Cluster) error {
		return s.executeCluster(ctx, s.results[i], c)
	})
	if err != nil {
		s.failed = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res := &Result{
		RunID:     s.runID,
		Policy:    s.policy,
		MaxDegree: s.maxDegree,
		Nodes:     s.nodeCount,
		Arcs:      s.arcCount,
		Clusters:  slices.Clone(s.results),
	}
	for _, cr := range s.results {
		res.Forced += cr.Forced
		res.Resolved += cr.Summary.Resolved
		res.Unresolved += cr.Summary.Unresolved
		res.Contradictions += len(cr.Report.Contradictions)
	}
	res.Duration = time.Since(start)
	s.result = res
	s.stage = stageRun

	s.ins.recordRun(ctx, s.policy, res.Duration.Seconds(), res.OK())
	span.SetAttributes(
		attribute.Int("forced", res.Forced),
		attribute.Int("unresolved", res.Unresolved),
		attribute.Int("contradictions", res.Contradictions),
	)
	if !res.OK() {
		span.SetStatus(codes.Error, "contradictions found")
	}
	s.logger.Info("run finished",
		"run_id", s.runID, "resolved", res.Resolved, "unresolved", res.Unresolved,
		"forced", res.Forced, "contradictions", res.Contradictions,
		"duration", res.Duration)
	return res, nil
}

func (s *Snapper) executeCluster(ctx context.Context, cr *ClusterResult, c *graph.Cluster) error {
	ctx, span := s.tracer.Start(ctx, "snapper.Cluster",
		trace.WithAttributes(
			attribute.Int("cluster.index", c.Index()),
			attribute.Int("cluster.nodes", c.Len()),
			attribute.Int("cluster.arcs", c.ArcCount()),
			attribute.Int("cluster.forced", cr.Forced),
			attribute.String("policy", cr.Policy.String()),
		),
	)
	defer span.End()

	sum, err := s.executor.Execute(ctx, c, cr.Policy)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	report := verify.Check(c, cr.Policy)

	cr.Summary = sum
	cr.Report = report
	cr.Nodes = nodeRecords(c.Nodes())
	cr.Arcs = arcRecords(c.Arcs())

	for _, contra := range report.Contradictions {
		s.logger.Warn("contradiction",
			"run_id", s.runID, "cluster", c.Index(), "code", string(contra.Code),
			"node", contra.Node.String(), "arc", contra.Arc.String(), "message", contra.Message)
	}
	s.ins.recordCluster(ctx, cr)
	span.SetAttributes(
		attribute.Int("cluster.unresolved", sum.Unresolved),
		attribute.Int("cluster.contradictions", len(report.Contradictions)),
	)
	return nil
}

// forEachCluster applies fn to every cluster, up to s.concurrency at a
// time. With concurrency 1 clusters are processed in index order.
func (s *Snapper) forEachCluster(fn func(i int, c *graph.Cluster) error) error {
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, c := range s.clusters {
		g.Go(func() error { return fn(i, c) })
	}
	return g.Wait()
}

func (s *Snapper) policyFor(c *graph.Cluster) solve.Policy {
	if s.selector != nil {
		return s.selector(c)
	}
	return s.policy
}

// RunID returns the run identity, or "" before Prepare.
func (s *Snapper) RunID() string { return s.runID }

// Policy returns the default agreement policy.
func (s *Snapper) Policy() solve.Policy { return s.policy }

// Clusters returns the clusters produced by decomposition.
func (s *Snapper) Clusters() []*graph.Cluster { return slices.Clone(s.clusters) }

// ClusterResults returns the per-cluster records, executed or not.
func (s *Snapper) ClusterResults() []*ClusterResult { return slices.Clone(s.results) }

// MaxDegree returns the largest node degree observed before decomposition.
func (s *Snapper) MaxDegree() int { return s.maxDegree }

// Result returns the completed run's result, or nil.
func (s *Snapper) Result() *Result { return s.result }

// Dump writes a deterministic textual description of the current state:
// the pool before Prepare, the oriented clusters after it, and outcomes
// and contradictions after Run. Timings are never included.
func (s *Snapper) Dump(w io.Writer) error {
	d := &dumpWriter{w: w}
	switch {
	case s.stage == stageReleased:
		d.linef("released")
	case s.stage == stageNew:
		d.linef("pool nodes=%d arcs=%d max_degree=%d",
			s.pool.Len(), s.pool.ArcCount(), graph.MaxDegree(s.pool.Nodes()))
		dumpNodes(d, nodeRecords(s.pool.Nodes()))
		dumpArcs(d, arcRecords(s.pool.Arcs()))
	default:
		d.linef("run %s policy=%s nodes=%d arcs=%d max_degree=%d clusters=%d",
			s.runID, s.policy, s.nodeCount, s.arcCount, s.maxDegree, len(s.results))
		for _, cr := range s.results {
			dumpCluster(d, cr)
		}
		if r := s.result; r != nil {
			d.linef("result forced=%d resolved=%d unresolved=%d contradictions=%d",
				r.Forced, r.Resolved, r.Unresolved, r.Contradictions)
		}
	}
	return d.err
}

// Cleanup releases the pool, the clusters and the stored result. It is
// safe to call at any point, including more than once.
func (s *Snapper) Cleanup() {
	for _, c := range s.clusters {
		c.Release()
	}
	s.pool.Clear()
	s.clusters = nil
	s.results = nil
	s.result = nil
	s.stage = stageReleased
	s.logger.Debug("snapper released", "run_id", s.runID)
}
