package model

import (
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Source tags which adapter produced a candidate.
type Source string

const (
	SourceDBLP            Source = "dblp"
	SourceArxiv           Source = "arXiv"
	SourceSemanticScholar Source = "Semantic Scholar"
	SourceORCID           Source = "ORCID"
	SourceScholar         Source = "Google Scholar"
	SourceUniversity      Source = "University"
	SourceResearchGate    Source = "ResearchGate"
)

// StatusPending is the lifecycle tag applied to every candidate on admission.
// Further transitions are owned by the backend, not this pipeline.
const StatusPending = "pending"

// Candidate is one retrieved record about the subject from one source.
// URL is the primary identity key for delivery dedup. RawData is opaque
// source-specific payload carried through unchanged for audit.
type Candidate struct {
	Source      Source         `json:"source"`
	URL         string         `json:"url"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Authors     string         `json:"authors,omitempty"`
	Institution string         `json:"institution,omitempty"`
	Confidence  float64        `json:"confidenceScore"`
	Status      string         `json:"status"`
	RawData     map[string]any `json:"raw_data,omitempty"`
}

// DOI returns the DOI carried in RawData, if any.
func (c Candidate) DOI() string {
	if c.RawData == nil {
		return ""
	}
	if doi, ok := c.RawData["doi"].(string); ok {
		return doi
	}
	return ""
}

// Validate normalizes a candidate for admission into the pipeline: the URL
// must be non-empty, the confidence is clamped to [0,1] and rounded to two
// decimals, and a missing status defaults to pending.
func (c *Candidate) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return eris.Errorf("model: candidate from %s has no url", c.Source)
	}
	c.Confidence = RoundScore(c.Confidence)
	if c.Status == "" {
		c.Status = StatusPending
	}
	return nil
}

// RoundScore clamps a confidence score to [0,1] and rounds it to two
// decimal places.
func RoundScore(s float64) float64 {
	s = math.Max(0, math.Min(s, 1))
	return math.Round(s*100) / 100
}
