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

const (
	s2AuthorCap = 3 // author hits examined from the search endpoint
	s2PaperCap  = 5 // papers fetched per matched author
)

// SemanticScholar queries the Semantic Scholar Graph API: author search,
// then the matched author's papers. The free tier needs no key.
type SemanticScholar struct {
	client  *Client
	scorer  *score.Scorer
	baseURL string
}

// NewSemanticScholar creates the Semantic Scholar adapter.
func NewSemanticScholar(client *Client, scorer *score.Scorer) *SemanticScholar {
	return &SemanticScholar{
		client:  client,
		scorer:  scorer,
		baseURL: "https://api.semanticscholar.org",
	}
}

// WithBaseURL overrides the API base (for tests).
func (s *SemanticScholar) WithBaseURL(u string) *SemanticScholar {
	s.baseURL = strings.TrimSuffix(u, "/")
	return s
}

func (s *SemanticScholar) Name() string { return string(model.SourceSemanticScholar) }

type s2AuthorSearch struct {
	Data []struct {
		AuthorID string `json:"authorId"`
		Name     string `json:"name"`
	} `json:"data"`
}

type s2Papers struct {
	Data []s2Paper `json:"data"`
}

type s2Paper struct {
	PaperID       string `json:"paperId"`
	Title         string `json:"title"`
	Abstract      string `json:"abstract"`
	Year          int    `json:"year"`
	URL           string `json:"url"`
	Venue         string `json:"venue"`
	CitationCount int    `json:"citationCount"`
	Authors       []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

// Fetch searches Semantic Scholar authors and collects papers from the
// first author hit matching the subject's last name.
func (s *SemanticScholar) Fetch(ctx context.Context, subject model.Subject) ([]model.Candidate, error) {
	fullName := subject.FullName()
	log := zap.L().With(zap.String("source", s.Name()), zap.String("subject", fullName))

	searchURL := fmt.Sprintf("%s/graph/v1/author/search?query=%s&limit=%d",
		s.baseURL, url.QueryEscape(fullName), s2AuthorCap)

	var search s2AuthorSearch
	if err := s.client.GetJSON(ctx, searchURL, nil, &search); err != nil {
		return nil, err
	}

	var results []model.Candidate
	for _, author := range search.Data {
		if !strings.Contains(strings.ToLower(author.Name), strings.ToLower(subject.LastName)) {
			continue
		}
		if author.AuthorID == "" {
			continue
		}

		papersURL := fmt.Sprintf("%s/graph/v1/author/%s/papers?limit=%d&fields=%s",
			s.baseURL, url.PathEscape(author.AuthorID), s2PaperCap,
			url.QueryEscape("title,authors,year,abstract,url,venue,citationCount"))

		var papers s2Papers
		if err := s.client.GetJSON(ctx, papersURL, nil, &papers); err != nil {
			log.Debug("papers fetch failed", zap.String("author", author.Name), zap.Error(err))
			continue
		}

		for _, paper := range papers.Data {
			results = append(results, s.candidate(subject, paper))
		}
		if len(results) > 0 {
			break
		}
	}

	log.Debug("semantic scholar search complete", zap.Int("candidates", len(results)))
	return results, nil
}

func (s *SemanticScholar) candidate(subject model.Subject, paper s2Paper) model.Candidate {
	var names []string
	for _, au := range paper.Authors {
		if au.Name != "" {
			names = append(names, au.Name)
		}
	}
	authors := strings.Join(names, ", ")

	paperURL := paper.URL
	if paperURL == "" {
		paperURL = "https://www.semanticscholar.org/paper/" + paper.PaperID
	}

	description := truncate(paper.Abstract, 500)
	if description == "" {
		description = fmt.Sprintf("Published in %s (%d)", paper.Venue, paper.Year)
	}

	confidence := s.scorer.Score(score.Input{
		CandidateName:     authors,
		TargetName:        subject.FullName(),
		TargetInstitution: subject.Institution,
		ScrapedText:       fmt.Sprintf("%s %s %s %s", paper.Title, paper.Abstract, authors, paper.Venue),
		FieldOfStudy:      subject.FieldOfStudy,
	})

	return model.Candidate{
		Source:      model.SourceSemanticScholar,
		URL:         paperURL,
		Title:       paper.Title,
		Description: description,
		Authors:     authors,
		Confidence:  confidence,
		Status:      model.StatusPending,
		RawData: map[string]any{
			"full_authors":   authors,
			"abstract":       paper.Abstract,
			"venue":          paper.Venue,
			"year":           paper.Year,
			"citation_count": paper.CitationCount,
		},
	}
}
