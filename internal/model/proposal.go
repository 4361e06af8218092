package model

import "time"

// Proposal is the ranked, deduplicated output of one aggregation run,
// ready for submission. Candidate order is rank order, highest confidence
// first. Immutable after construction.
type Proposal struct {
	MemberID   string      `json:"member,omitempty"`
	Candidates []Candidate `json:"scrapedData"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// NewProposal wraps ranked candidates for a subject, stamping creation time.
func NewProposal(subject Subject, candidates []Candidate) *Proposal {
	return &Proposal{
		MemberID:   subject.MemberID,
		Candidates: candidates,
		CreatedAt:  time.Now().UTC(),
	}
}

// Empty reports whether the proposal carries no candidates. Empty proposals
// are a valid terminal state and are never submitted.
func (p *Proposal) Empty() bool {
	return len(p.Candidates) == 0
}
