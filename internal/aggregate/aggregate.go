// Package aggregate runs the multi-source aggregation pipeline: concurrent
// adapter fan-out, confidence filtering, deduplication, ranking, delivery
// filtering, and backend submission.
package aggregate

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pubgrove/scholar-cli/internal/dedup"
	"github.com/pubgrove/scholar-cli/internal/model"
	"github.com/pubgrove/scholar-cli/internal/source"
)

// MinConfidence is the admission threshold: candidates scoring below it
// never enter a proposal.
const MinConfidence = 0.15

// Outcome records one adapter's result within a run. Failures are isolated
// but observable: a failed adapter contributes zero candidates and a reason.
type Outcome struct {
	Source     string `json:"source"`
	Candidates int    `json:"candidates"`
	Err        string `json:"error,omitempty"`
}

// Failed reports whether the adapter errored rather than returning empty.
func (o Outcome) Failed() bool { return o.Err != "" }

// Report summarizes a whole aggregation run, adapter by adapter, in
// dispatch order.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
	// Collected counts candidates before confidence filtering.
	Collected int `json:"collected"`
	// Kept counts candidates in the final proposal.
	Kept int `json:"kept"`
}

// FailureCount returns how many adapters failed outright.
func (r *Report) FailureCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}

// Orchestrator fans a subject out to every registered adapter and folds
// the results into a ranked proposal.
type Orchestrator struct {
	registry *source.Registry
}

// NewOrchestrator creates an orchestrator over the given adapter registry.
func NewOrchestrator(registry *source.Registry) *Orchestrator {
	return &Orchestrator{registry: registry}
}

// Aggregate dispatches all adapters concurrently, waits for every one to
// settle, then filters, deduplicates, and ranks the merged candidates.
// Adapter failures never abort the run; an empty proposal is a valid
// terminal outcome. The report carries per-adapter outcomes so partial
// failure stays distinguishable from empty success.
func (o *Orchestrator) Aggregate(ctx context.Context, subject model.Subject) (*model.Proposal, *Report) {
	adapters := o.registry.All()
	log := zap.L().With(zap.String("subject", subject.FullName()))

	log.Info("starting aggregation", zap.Int("sources", len(adapters)))

	// One slot per adapter; slots are written by exactly one goroutine
	// each and read only after Wait, so the merge needs no locking.
	type slot struct {
		candidates []model.Candidate
		err        error
	}
	slots := make([]slot, len(adapters))

	g, gCtx := errgroup.WithContext(ctx)
	for i, adapter := range adapters {
		g.Go(func() error {
			candidates, err := adapter.Fetch(gCtx, subject)
			if err != nil {
				log.Warn("source failed",
					zap.String("source", adapter.Name()),
					zap.Error(err),
				)
				slots[i] = slot{err: err}
				return nil
			}
			slots[i] = slot{candidates: candidates}
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{Outcomes: make([]Outcome, 0, len(adapters))}
	var merged []model.Candidate
	for i, adapter := range adapters {
		outcome := Outcome{Source: adapter.Name()}
		if slots[i].err != nil {
			outcome.Err = slots[i].err.Error()
		} else {
			for _, c := range slots[i].candidates {
				if err := c.Validate(); err != nil {
					log.Debug("dropping invalid candidate", zap.Error(err))
					continue
				}
				merged = append(merged, c)
				outcome.Candidates++
			}
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}
	report.Collected = len(merged)

	filtered := merged[:0:len(merged)]
	for _, c := range merged {
		if c.Confidence >= MinConfidence {
			filtered = append(filtered, c)
		}
	}

	deduped := dedup.Dedupe(filtered)

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Confidence > deduped[j].Confidence
	})

	report.Kept = len(deduped)
	log.Info("aggregation complete",
		zap.Int("collected", report.Collected),
		zap.Int("kept", report.Kept),
		zap.Int("failed_sources", report.FailureCount()),
	)

	return model.NewProposal(subject, deduped), report
}
