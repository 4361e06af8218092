package aggregate

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/pubgrove/scholar-cli/internal/model"
	"github.com/pubgrove/scholar-cli/internal/source"
	"github.com/pubgrove/scholar-cli/internal/store"
	"github.com/pubgrove/scholar-cli/pkg/strapi"
)

// Service runs the full pipeline for a subject: aggregate, filter against
// already delivered URLs, submit to the backend, and record run history.
type Service struct {
	orchestrator *Orchestrator
	backend      strapi.Client
	store        store.Store
	dryRun       bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithDryRun skips backend writes; the proposal is still built and the
// run recorded.
func WithDryRun(dry bool) ServiceOption {
	return func(s *Service) { s.dryRun = dry }
}

// NewService wires the orchestrator, backend client, and run store.
func NewService(registry *source.Registry, backend strapi.Client, st store.Store, opts ...ServiceOption) *Service {
	s := &Service{
		orchestrator: NewOrchestrator(registry),
		backend:      backend,
		store:        st,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is the outcome of one end-to-end run.
type Result struct {
	RunID     string          `json:"runId"`
	Proposal  *model.Proposal `json:"proposal"`
	Report    *Report         `json:"report"`
	Submitted int             `json:"submitted"`
	// ProposalID is the backend entry ID, zero when nothing was submitted.
	ProposalID int `json:"proposalId,omitempty"`
}

// Run executes aggregation for one subject end to end. Backend delivery
// failures fail the run; source failures and an unreachable delivery
// history do not.
func (s *Service) Run(ctx context.Context, subject model.Subject) (*Result, error) {
	run, err := s.store.CreateRun(ctx, subject)
	if err != nil {
		return nil, eris.Wrap(err, "service: create run")
	}

	proposal, report := s.orchestrator.Aggregate(ctx, subject)

	res := &Result{RunID: run.ID, Report: report}
	run.Collected = report.Collected
	run.Kept = report.Kept
	if reportJSON, err := json.Marshal(report); err == nil {
		run.Report = string(reportJSON)
	}

	if subject.HasDeliveryKey() {
		delivered, err := s.backend.ExistingURLs(ctx, subject.MemberID)
		if err != nil {
			// Unknown delivery history falls back to proposing everything.
			zap.L().Warn("could not fetch delivered URLs, proposing all candidates",
				zap.String("memberID", subject.MemberID),
				zap.Error(err),
			)
			delivered = map[string]struct{}{}
		}
		proposal = FilterDelivered(proposal, delivered)
	}
	res.Proposal = proposal

	if err := s.deliver(ctx, subject, proposal, res); err != nil {
		run.Status = store.RunFailed
		run.Error = err.Error()
		s.finishRun(ctx, run)
		return res, err
	}

	run.Submitted = res.Submitted
	run.Status = store.RunCompleted
	s.finishRun(ctx, run)
	return res, nil
}

func (s *Service) deliver(ctx context.Context, subject model.Subject, proposal *model.Proposal, res *Result) error {
	if proposal.Empty() {
		zap.L().Info("nothing to submit", zap.String("subject", subject.FullName()))
		return nil
	}
	if s.dryRun {
		zap.L().Info("dry run, skipping submission",
			zap.Int("candidates", len(proposal.Candidates)),
		)
		return nil
	}

	submit, err := s.backend.SubmitProposal(ctx, proposal)
	if err != nil {
		return eris.Wrap(err, "service: submit proposal")
	}
	res.Submitted = len(proposal.Candidates)
	res.ProposalID = submit.ID
	zap.L().Info("proposal submitted",
		zap.Int("proposalID", submit.ID),
		zap.Int("candidates", res.Submitted),
	)

	s.updateMemberDetails(ctx, subject, proposal)
	return nil
}

// updateMemberDetails pushes directory contact fields to the backend when
// a university profile candidate carried them. Failure is logged only.
func (s *Service) updateMemberDetails(ctx context.Context, subject model.Subject, proposal *model.Proposal) {
	if !subject.HasDeliveryKey() {
		return
	}
	details, ok := directoryDetails(proposal.Candidates)
	if !ok {
		return
	}
	if err := s.backend.UpdateMember(ctx, subject.MemberID, details); err != nil {
		zap.L().Warn("member update failed",
			zap.String("memberID", subject.MemberID),
			zap.Error(err),
		)
	}
}

// directoryDetails extracts contact fields from the first university
// directory candidate that carries any.
func directoryDetails(candidates []model.Candidate) (strapi.MemberDetails, bool) {
	for _, c := range candidates {
		if c.Source != model.SourceUniversity {
			continue
		}
		details := strapi.MemberDetails{
			Title: rawString(c.RawData, "title"),
			Room:  rawString(c.RawData, "room"),
			Phone: rawString(c.RawData, "phone"),
			Email: rawString(c.RawData, "email"),
		}
		if details != (strapi.MemberDetails{}) {
			return details, true
		}
	}
	return strapi.MemberDetails{}, false
}

func rawString(raw map[string]any, key string) string {
	if raw == nil {
		return ""
	}
	v, _ := raw[key].(string)
	return v
}

func (s *Service) finishRun(ctx context.Context, run *store.Run) {
	if err := s.store.FinishRun(ctx, run); err != nil {
		zap.L().Warn("could not record run outcome",
			zap.String("runID", run.ID),
			zap.Error(err),
		)
	}
}
