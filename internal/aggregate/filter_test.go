package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubgrove/scholar-cli/internal/model"
)

func TestFilterDelivered_RemovesKnownURLs(t *testing.T) {
	proposal := model.NewProposal(testSubject(), []model.Candidate{
		candidate(model.SourceDBLP, "Old", "https://dblp.org/old", 0.9),
		candidate(model.SourceArxiv, "New", "https://arxiv.org/new", 0.5),
	})

	filtered := FilterDelivered(proposal, map[string]struct{}{
		"https://dblp.org/old": {},
	})

	require.Len(t, filtered.Candidates, 1)
	assert.Equal(t, "New", filtered.Candidates[0].Title)
}

func TestFilterDelivered_ExactMatchOnly(t *testing.T) {
	proposal := model.NewProposal(testSubject(), []model.Candidate{
		candidate(model.SourceDBLP, "Paper", "https://dblp.org/rec/x", 0.9),
	})

	filtered := FilterDelivered(proposal, map[string]struct{}{
		"https://dblp.org/rec/x/": {},
	})

	assert.Len(t, filtered.Candidates, 1)
}

func TestFilterDelivered_PreservesOrder(t *testing.T) {
	proposal := model.NewProposal(testSubject(), []model.Candidate{
		candidate(model.SourceDBLP, "A", "https://x/a", 0.9),
		candidate(model.SourceDBLP, "B", "https://x/b", 0.7),
		candidate(model.SourceDBLP, "C", "https://x/c", 0.5),
	})

	filtered := FilterDelivered(proposal, map[string]struct{}{"https://x/b": {}})

	require.Len(t, filtered.Candidates, 2)
	assert.Equal(t, "A", filtered.Candidates[0].Title)
	assert.Equal(t, "C", filtered.Candidates[1].Title)
}

func TestFilterDelivered_EmptySetKeepsAll(t *testing.T) {
	proposal := model.NewProposal(testSubject(), []model.Candidate{
		candidate(model.SourceDBLP, "A", "https://x/a", 0.9),
	})

	filtered := FilterDelivered(proposal, nil)

	assert.Len(t, filtered.Candidates, 1)
}

func TestFilterDelivered_CanEmptyProposal(t *testing.T) {
	proposal := model.NewProposal(testSubject(), []model.Candidate{
		candidate(model.SourceDBLP, "A", "https://x/a", 0.9),
	})

	filtered := FilterDelivered(proposal, map[string]struct{}{"https://x/a": {}})

	assert.True(t, filtered.Empty())
}
