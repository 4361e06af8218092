package source

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/pubgrove/scholar-cli/internal/model"
	"github.com/pubgrove/scholar-cli/internal/score"
)

// researchGateProfileCap caps the profile links parsed per search.
const researchGateProfileCap = 3

// ResearchGate scrapes the researcher search page. The site serves a
// JS-only shell to unauthenticated crawlers most of the time, so this
// adapter usually contributes nothing; it degrades to an empty result with
// a block diagnostic rather than an error.
type ResearchGate struct {
	client  *Client
	scorer  *score.Scorer
	baseURL string
}

// NewResearchGate creates the ResearchGate adapter.
func NewResearchGate(client *Client, scorer *score.Scorer) *ResearchGate {
	return &ResearchGate{
		client:  client,
		scorer:  scorer,
		baseURL: "https://www.researchgate.net",
	}
}

// WithBaseURL overrides the page base (for tests).
func (r *ResearchGate) WithBaseURL(u string) *ResearchGate {
	r.baseURL = strings.TrimSuffix(u, "/")
	return r
}

func (r *ResearchGate) Name() string { return string(model.SourceResearchGate) }

// Fetch searches ResearchGate for researcher profiles matching the subject.
func (r *ResearchGate) Fetch(ctx context.Context, subject model.Subject) ([]model.Candidate, error) {
	fullName := subject.FullName()
	log := zap.L().With(zap.String("source", r.Name()), zap.String("subject", fullName))

	searchURL := r.baseURL + "/search/researcher?q=" + url.QueryEscape(fullName)
	body, status, err := r.client.Get(ctx, searchURL, map[string]string{"User-Agent": scholarUserAgent})
	if err != nil {
		return nil, err
	}
	if blocked, kind := DetectBlock(status, body); blocked {
		log.Debug("researchgate blocked", zap.String("block_type", string(kind)))
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var results []model.Candidate
	doc.Find(`a[href*="profile/"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		name := strings.TrimSpace(sel.Text())
		if name == "" || !strings.Contains(strings.ToLower(name), strings.ToLower(subject.LastName)) {
			return true
		}
		href, _ := sel.Attr("href")
		if !strings.HasPrefix(href, "http") {
			href = r.baseURL + "/" + strings.TrimPrefix(href, "/")
		}

		confidence := r.scorer.Score(score.Input{
			CandidateName:     name,
			TargetName:        fullName,
			TargetInstitution: subject.Institution,
		})

		results = append(results, model.Candidate{
			Source:     model.SourceResearchGate,
			URL:        href,
			Title:      name,
			Authors:    name,
			Confidence: confidence,
			Status:     model.StatusPending,
			RawData:    map[string]any{"profile_name": name},
		})
		return len(results) < researchGateProfileCap
	})

	log.Debug("researchgate search complete", zap.Int("candidates", len(results)))
	return results, nil
}
