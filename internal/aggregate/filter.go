package aggregate

import (
	"go.uber.org/zap"

	"github.com/pubgrove/scholar-cli/internal/model"
)

// FilterDelivered removes candidates whose URL the backend already holds
// for this member. The comparison is exact on the URL string. Filtering
// happens after ranking, so relative order of survivors is preserved.
func FilterDelivered(proposal *model.Proposal, delivered map[string]struct{}) *model.Proposal {
	if len(delivered) == 0 {
		return proposal
	}
	kept := make([]model.Candidate, 0, len(proposal.Candidates))
	for _, c := range proposal.Candidates {
		if _, seen := delivered[c.URL]; seen {
			zap.L().Debug("skipping already delivered candidate",
				zap.String("url", c.URL),
			)
			continue
		}
		kept = append(kept, c)
	}
	out := *proposal
	out.Candidates = kept
	return &out
}
