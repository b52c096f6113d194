// Package syncer pushes scored TrackerRMS placements into a CRM as deals.
package syncer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/crm"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/metrics"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/model"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/resilience"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/scoring"
	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/pkg/trackerrms"
)

// Summary describes one sync run.
type Summary struct {
	RunID           string        `json:"runId"`
	PortalID        string        `json:"portalId,omitempty"`
	Jobs            int           `json:"jobs"`
	Placements      int           `json:"placements"`
	Created         int           `json:"created"`
	Updated         int           `json:"updated"`
	Failed          int           `json:"failed"`
	DefaultedScores int           `json:"defaultedScores"`
	StartedAt       time.Time     `json:"startedAt"`
	Duration        time.Duration `json:"duration"`
	Error           string        `json:"error,omitempty"`
}

// Orchestrator runs fetch, score and upsert for one portal.
type Orchestrator struct {
	source      trackerrms.Client
	deals       crm.Deals
	portalID    string
	weights     scoring.Weights
	concurrency int
	retry       resilience.RetryConfig
	metrics     *metrics.Manager
	now         func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWeights sets the overall-score weights.
func WithWeights(w scoring.Weights) Option {
	return func(o *Orchestrator) { o.weights = w }
}

// WithConcurrency bounds parallel deal upserts.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithRetry sets the retry policy for CRM calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(o *Orchestrator) { o.retry = cfg }
}

// WithMetrics records run and upsert metrics.
func WithMetrics(m *metrics.Manager) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithPortal tags the summary and logs with portalID.
func WithPortal(portalID string) Option {
	return func(o *Orchestrator) { o.portalID = portalID }
}

// New creates an Orchestrator reading from source and writing to deals.
func New(source trackerrms.Client, deals crm.Deals, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:      source,
		deals:       deals,
		weights:     scoring.DefaultWeights,
		concurrency: 4,
		retry:       resilience.DefaultRetryConfig(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run performs one sync. Fetch failures abort the run; a failed deal upsert
// is counted and logged and the run continues.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{
		RunID:     uuid.NewString(),
		PortalID:  o.portalID,
		StartedAt: o.now().UTC(),
	}
	log := zap.L().With(zap.String("run_id", sum.RunID), zap.String("portal_id", o.portalID))
	log.Info("sync: starting")

	err := o.run(ctx, sum, log)
	sum.Duration = o.now().Sub(sum.StartedAt)
	if o.metrics != nil {
		o.metrics.RecordSyncRun(err == nil, sum.Duration)
	}
	if err != nil {
		log.Error("sync: failed", zap.Error(err))
		sum.Error = err.Error()
		return sum, err
	}

	log.Info("sync: complete",
		zap.Int("jobs", sum.Jobs),
		zap.Int("placements", sum.Placements),
		zap.Int("created", sum.Created),
		zap.Int("updated", sum.Updated),
		zap.Int("failed", sum.Failed),
		zap.Int("defaulted_scores", sum.DefaultedScores),
		zap.Duration("duration", sum.Duration),
	)
	return sum, nil
}

func (o *Orchestrator) run(ctx context.Context, sum *Summary, log *zap.Logger) error {
	jobs, err := o.source.ListJobs(ctx)
	if err != nil {
		return eris.Wrap(err, "syncer: fetch jobs")
	}
	placements, err := o.source.ListPlacements(ctx)
	if err != nil {
		return eris.Wrap(err, "syncer: fetch placements")
	}
	sum.Jobs = len(jobs)
	sum.Placements = len(placements)

	scored, results := scoring.BatchResults(model.AttachJobs(placements, jobs), o.weights)
	sum.DefaultedScores = o.countDefaulted(results)

	var created, updated, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i := range scored {
		p := scored[i]
		g.Go(func() error {
			outcome, err := o.upsert(gctx, p)
			if err != nil {
				failed.Add(1)
				log.Error("sync: deal upsert failed", zap.String("placement_id", p.ID), zap.Error(err))
				outcome = metrics.OutcomeFailed
			} else if outcome == metrics.OutcomeCreated {
				created.Add(1)
			} else {
				updated.Add(1)
			}
			if o.metrics != nil {
				o.metrics.RecordUpsert(outcome)
			}
			return nil
		})
	}
	_ = g.Wait()

	sum.Created = int(created.Load())
	sum.Updated = int(updated.Load())
	sum.Failed = int(failed.Load())

	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "syncer: cancelled")
	}
	return nil
}

// upsert updates the deal linked to p, or creates one.
func (o *Orchestrator) upsert(ctx context.Context, p model.Placement) (string, error) {
	overall := 0
	if p.OverallScore != nil {
		overall = *p.OverallScore
	}
	props := crm.DealProperties(p, scoring.TierOf(overall))

	retry := o.retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("crm", "upsert "+p.ID)
	}

	deal, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*crm.Deal, error) {
		return o.deals.Find(ctx, p.ID)
	})
	if err != nil {
		return "", err
	}

	if deal != nil {
		err := resilience.Do(ctx, retry, func(ctx context.Context) error {
			return o.deals.Update(ctx, deal.ID, props)
		})
		return metrics.OutcomeUpdated, err
	}

	_, err = resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
		return o.deals.Create(ctx, props)
	})
	return metrics.OutcomeCreated, err
}

func (o *Orchestrator) countDefaulted(results []scoring.Scores) int {
	var velocity, roi int
	for _, r := range results {
		if r.Velocity.Defaulted() {
			velocity++
		}
		if r.ROI.Defaulted() {
			roi++
		}
	}
	if o.metrics != nil {
		o.metrics.RecordDefaulted("velocity", velocity)
		o.metrics.RecordDefaulted("roi", roi)
	}
	return velocity + roi
}
