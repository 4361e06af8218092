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

// scholarResultCap caps how many result blocks are parsed per search.
const scholarResultCap = 5

// scholarUserAgent mimics a browser; the scholar result page is served
// differently to obvious bots.
const scholarUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Scholar scrapes the Google Scholar result page for the subject's name.
// There is no API; results come from the HTML result blocks.
type Scholar struct {
	client  *Client
	scorer  *score.Scorer
	baseURL string
}

// NewScholar creates the Google Scholar adapter.
func NewScholar(client *Client, scorer *score.Scorer) *Scholar {
	return &Scholar{
		client:  client,
		scorer:  scorer,
		baseURL: "https://scholar.google.com",
	}
}

// WithBaseURL overrides the page base (for tests).
func (g *Scholar) WithBaseURL(u string) *Scholar {
	g.baseURL = strings.TrimSuffix(u, "/")
	return g
}

func (g *Scholar) Name() string { return string(model.SourceScholar) }

// Fetch scrapes the first page of scholar results for the subject.
func (g *Scholar) Fetch(ctx context.Context, subject model.Subject) ([]model.Candidate, error) {
	fullName := subject.FullName()
	log := zap.L().With(zap.String("source", g.Name()), zap.String("subject", fullName))

	searchURL := g.baseURL + "/scholar?q=" + url.QueryEscape(fullName)
	body, status, err := g.client.Get(ctx, searchURL, map[string]string{"User-Agent": scholarUserAgent})
	if err != nil {
		return nil, err
	}
	if blocked, kind := DetectBlock(status, body); blocked {
		log.Debug("scholar page blocked", zap.String("block_type", string(kind)))
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var results []model.Candidate
	doc.Find("div.gs_ri").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		titleSel := sel.Find("h3.gs_rt")
		title := strings.TrimSpace(titleSel.Text())
		if title == "" {
			return true
		}

		resultURL := searchURL
		if href, ok := titleSel.Find("a").Attr("href"); ok && href != "" {
			resultURL = href
		}

		snippet := strings.TrimSpace(sel.Find("div.gs_rs").Text())
		byline := strings.TrimSpace(sel.Find("div.gs_a").Text())

		// The byline reads "authors - institution - domain"; the segment
		// after the first dash is the best institution guess available.
		scrapedInstitution := ""
		if parts := strings.SplitN(byline, "-", 3); len(parts) > 1 {
			scrapedInstitution = strings.TrimSpace(parts[1])
		}

		confidence := g.scorer.Score(score.Input{
			CandidateName:      byline,
			TargetName:         fullName,
			ScrapedInstitution: scrapedInstitution,
			TargetInstitution:  subject.Institution,
			ScrapedText:        title + " " + snippet + " " + byline,
			FieldOfStudy:       subject.FieldOfStudy,
		})

		results = append(results, model.Candidate{
			Source:      model.SourceScholar,
			URL:         resultURL,
			Title:       title,
			Description: snippet,
			Authors:     byline,
			Confidence:  confidence,
			Status:      model.StatusPending,
			RawData: map[string]any{
				"full_authors": byline,
				"snippet":      snippet,
			},
		})
		return len(results) < scholarResultCap
	})

	log.Debug("scholar search complete", zap.Int("candidates", len(results)))
	return results, nil
}
