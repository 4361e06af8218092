package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/pubgrove/scholar-cli/internal/model"
	"github.com/pubgrove/scholar-cli/internal/score"
)

// arxivMaxResults caps the preprints fetched per subject.
const arxivMaxResults = 5

// Arxiv queries the arXiv Atom API for the subject's newest preprints.
type Arxiv struct {
	client  *Client
	scorer  *score.Scorer
	baseURL string
}

// NewArxiv creates the arXiv adapter.
func NewArxiv(client *Client, scorer *score.Scorer) *Arxiv {
	return &Arxiv{
		client:  client,
		scorer:  scorer,
		baseURL: "http://export.arxiv.org/api/query",
	}
}

// WithBaseURL overrides the API base (for tests).
func (a *Arxiv) WithBaseURL(u string) *Arxiv {
	a.baseURL = u
	return a
}

func (a *Arxiv) Name() string { return string(model.SourceArxiv) }

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Title string `xml:"title,attr"`
	} `xml:"link"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
}

// url prefers the PDF link, falling back to the first link on the entry.
func (e atomEntry) url() string {
	for _, l := range e.Links {
		if l.Title == "pdf" {
			return l.Href
		}
	}
	if len(e.Links) > 0 {
		return e.Links[0].Href
	}
	return ""
}

// Fetch queries arXiv for the subject's newest submissions.
func (a *Arxiv) Fetch(ctx context.Context, subject model.Subject) ([]model.Candidate, error) {
	fullName := subject.FullName()

	query := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=submittedDate&sortOrder=descending",
		a.baseURL, url.QueryEscape("au:"+fullName), arxivMaxResults)

	var feed atomFeed
	if err := a.client.GetXML(ctx, query, &feed); err != nil {
		return nil, err
	}

	results := make([]model.Candidate, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		title := strings.TrimSpace(entry.Title)
		summary := strings.TrimSpace(entry.Summary)

		var names []string
		for _, au := range entry.Authors {
			if au.Name != "" {
				names = append(names, au.Name)
			}
		}
		authors := strings.Join(names, ", ")

		year := ""
		if len(entry.Published) >= 4 {
			year = entry.Published[:4]
		}

		var categories []string
		for _, c := range entry.Categories {
			if c.Term != "" {
				categories = append(categories, c.Term)
			}
		}

		confidence := a.scorer.Score(score.Input{
			CandidateName:     authors,
			TargetName:        fullName,
			TargetInstitution: subject.Institution,
			ScrapedText:       fmt.Sprintf("%s %s %s", title, summary, authors),
			FieldOfStudy:      subject.FieldOfStudy,
		})

		results = append(results, model.Candidate{
			Source:      model.SourceArxiv,
			URL:         entry.url(),
			Title:       title,
			Description: truncate(summary, 500),
			Authors:     authors,
			Confidence:  confidence,
			Status:      model.StatusPending,
			RawData: map[string]any{
				"full_authors": authors,
				"abstract":     summary,
				"year":         year,
				"categories":   categories,
			},
		})
	}

	zap.L().Debug("arxiv search complete",
		zap.String("subject", fullName),
		zap.Int("candidates", len(results)),
	)
	return results, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
