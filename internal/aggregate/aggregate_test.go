package aggregate

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubgrove/scholar-cli/internal/model"
	"github.com/pubgrove/scholar-cli/internal/source"
)

type stubAdapter struct {
	name       string
	candidates []model.Candidate
	err        error
	block      chan struct{}
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) Fetch(ctx context.Context, subject model.Subject) ([]model.Candidate, error) {
	if a.block != nil {
		<-a.block
	}
	return a.candidates, a.err
}

func candidate(source model.Source, title, url string, confidence float64) model.Candidate {
	return model.Candidate{
		Source:     source,
		Title:      title,
		URL:        url,
		Confidence: confidence,
	}
}

func testSubject() model.Subject {
	return model.Subject{
		FirstName:    "Lukasz",
		LastName:     "Madej",
		Institution:  "AGH University of Science and Technology",
		FieldOfStudy: "Computer Science",
		MemberID:     "doc-123",
	}
}

func newRegistry(adapters ...source.Adapter) *source.Registry {
	r := source.NewRegistry()
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func TestAggregate_MergesAllSources(t *testing.T) {
	reg := newRegistry(
		&stubAdapter{name: "dblp", candidates: []model.Candidate{
			candidate(model.SourceDBLP, "Paper A", "https://dblp.org/a", 0.8),
		}},
		&stubAdapter{name: "arXiv", candidates: []model.Candidate{
			candidate(model.SourceArxiv, "Paper B", "https://arxiv.org/b", 0.6),
		}},
	)

	proposal, report := NewOrchestrator(reg).Aggregate(context.Background(), testSubject())

	require.Len(t, proposal.Candidates, 2)
	assert.Equal(t, 2, report.Collected)
	assert.Equal(t, 2, report.Kept)
	assert.Zero(t, report.FailureCount())
}

func TestAggregate_SortedByConfidenceDesc(t *testing.T) {
	reg := newRegistry(
		&stubAdapter{name: "dblp", candidates: []model.Candidate{
			candidate(model.SourceDBLP, "Low", "https://x/1", 0.3),
			candidate(model.SourceDBLP, "High", "https://x/2", 0.9),
			candidate(model.SourceDBLP, "Mid", "https://x/3", 0.5),
		}},
	)

	proposal, _ := NewOrchestrator(reg).Aggregate(context.Background(), testSubject())

	require.Len(t, proposal.Candidates, 3)
	assert.Equal(t, "High", proposal.Candidates[0].Title)
	assert.Equal(t, "Mid", proposal.Candidates[1].Title)
	assert.Equal(t, "Low", proposal.Candidates[2].Title)
}

func TestAggregate_SortIsStable(t *testing.T) {
	// Equal confidence keeps source dispatch order.
	reg := newRegistry(
		&stubAdapter{name: "dblp", candidates: []model.Candidate{
			candidate(model.SourceDBLP, "First", "https://x/1", 0.5),
		}},
		&stubAdapter{name: "arXiv", candidates: []model.Candidate{
			candidate(model.SourceArxiv, "Second", "https://x/2", 0.5),
		}},
	)

	proposal, _ := NewOrchestrator(reg).Aggregate(context.Background(), testSubject())

	require.Len(t, proposal.Candidates, 2)
	assert.Equal(t, "First", proposal.Candidates[0].Title)
	assert.Equal(t, "Second", proposal.Candidates[1].Title)
}

func TestAggregate_DropsBelowThreshold(t *testing.T) {
	reg := newRegistry(
		&stubAdapter{name: "dblp", candidates: []model.Candidate{
			candidate(model.SourceDBLP, "Keep", "https://x/1", 0.15),
			candidate(model.SourceDBLP, "Drop", "https://x/2", 0.14),
		}},
	)

	proposal, report := NewOrchestrator(reg).Aggregate(context.Background(), testSubject())

	require.Len(t, proposal.Candidates, 1)
	assert.Equal(t, "Keep", proposal.Candidates[0].Title)
	assert.Equal(t, 2, report.Collected)
	assert.Equal(t, 1, report.Kept)
}

func TestAggregate_PartialFailure(t *testing.T) {
	reg := newRegistry(
		&stubAdapter{name: "dblp", err: eris.New("dblp down")},
		&stubAdapter{name: "arXiv", candidates: []model.Candidate{
			candidate(model.SourceArxiv, "Survivor", "https://arxiv.org/s", 0.7),
		}},
	)

	proposal, report := NewOrchestrator(reg).Aggregate(context.Background(), testSubject())

	require.Len(t, proposal.Candidates, 1)
	assert.Equal(t, "Survivor", proposal.Candidates[0].Title)

	require.Len(t, report.Outcomes, 2)
	assert.True(t, report.Outcomes[0].Failed())
	assert.Contains(t, report.Outcomes[0].Err, "dblp down")
	assert.False(t, report.Outcomes[1].Failed())
	assert.Equal(t, 1, report.FailureCount())
}

func TestAggregate_AllSourcesFail(t *testing.T) {
	reg := newRegistry(
		&stubAdapter{name: "dblp", err: eris.New("down")},
		&stubAdapter{name: "arXiv", err: eris.New("down")},
	)

	proposal, report := NewOrchestrator(reg).Aggregate(context.Background(), testSubject())

	assert.True(t, proposal.Empty())
	assert.Equal(t, 2, report.FailureCount())
}

func TestAggregate_DeduplicatesAcrossSources(t *testing.T) {
	a := candidate(model.SourceDBLP, "Cellular Automata in Rolling", "https://dblp.org/p", 0.6)
	a.RawData = map[string]any{"doi": "10.1000/xyz"}
	b := candidate(model.SourceSemanticScholar, "Different Title Entirely", "https://s2.org/p", 0.9)
	b.RawData = map[string]any{"doi": "10.1000/xyz"}

	reg := newRegistry(
		&stubAdapter{name: "dblp", candidates: []model.Candidate{a}},
		&stubAdapter{name: "Semantic Scholar", candidates: []model.Candidate{b}},
	)

	proposal, report := NewOrchestrator(reg).Aggregate(context.Background(), testSubject())

	require.Len(t, proposal.Candidates, 1)
	assert.Equal(t, model.SourceSemanticScholar, proposal.Candidates[0].Source)
	assert.Equal(t, 2, report.Collected)
	assert.Equal(t, 1, report.Kept)
}

func TestAggregate_DropsInvalidCandidates(t *testing.T) {
	reg := newRegistry(
		&stubAdapter{name: "dblp", candidates: []model.Candidate{
			{Source: model.SourceDBLP, Title: "No URL", Confidence: 0.9},
			candidate(model.SourceDBLP, "Valid", "https://x/1", 0.5),
		}},
	)

	proposal, report := NewOrchestrator(reg).Aggregate(context.Background(), testSubject())

	require.Len(t, proposal.Candidates, 1)
	assert.Equal(t, "Valid", proposal.Candidates[0].Title)
	assert.Equal(t, 1, report.Outcomes[0].Candidates)
}

func TestAggregate_NoAdapters(t *testing.T) {
	proposal, report := NewOrchestrator(source.NewRegistry()).Aggregate(context.Background(), testSubject())

	assert.True(t, proposal.Empty())
	assert.Empty(t, report.Outcomes)
}
