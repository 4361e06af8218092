package source

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/pubgrove/scholar-cli/internal/model"
	"github.com/pubgrove/scholar-cli/internal/score"
)

const (
	dblpSearchHits = 10 // hits requested from the author search API
	dblpAuthorCap  = 3  // author hits actually examined
	dblpPubCap     = 5  // newest publications kept per matched author
)

// DBLP queries the dblp computer science bibliography: author search first,
// then the matched author's publication record.
type DBLP struct {
	client  *Client
	scorer  *score.Scorer
	baseURL string
}

// NewDBLP creates the dblp adapter.
func NewDBLP(client *Client, scorer *score.Scorer) *DBLP {
	return &DBLP{
		client:  client,
		scorer:  scorer,
		baseURL: "https://dblp.org",
	}
}

// WithBaseURL overrides the API base (for tests).
func (d *DBLP) WithBaseURL(u string) *DBLP {
	d.baseURL = strings.TrimSuffix(u, "/")
	return d
}

func (d *DBLP) Name() string { return string(model.SourceDBLP) }

type dblpSearchResponse struct {
	Result struct {
		Hits struct {
			Hit []struct {
				Info struct {
					Author string `json:"author"`
					URL    string `json:"url"`
				} `json:"info"`
			} `json:"hit"`
		} `json:"hits"`
	} `json:"result"`
}

type dblpPerson struct {
	Records []dblpRecord `xml:"r"`
}

type dblpRecord struct {
	Article       *dblpPub `xml:"article"`
	InProceedings *dblpPub `xml:"inproceedings"`
	Proceedings   *dblpPub `xml:"proceedings"`
	Book          *dblpPub `xml:"book"`
	InCollection  *dblpPub `xml:"incollection"`
}

// pub returns the publication element present in the record and its kind.
func (r dblpRecord) pub() (*dblpPub, string) {
	switch {
	case r.Article != nil:
		return r.Article, "article"
	case r.InProceedings != nil:
		return r.InProceedings, "inproceedings"
	case r.Proceedings != nil:
		return r.Proceedings, "proceedings"
	case r.Book != nil:
		return r.Book, "book"
	case r.InCollection != nil:
		return r.InCollection, "incollection"
	}
	return nil, ""
}

type dblpPub struct {
	Title     string   `xml:"title"`
	Year      int      `xml:"year"`
	Authors   []string `xml:"author"`
	Journal   string   `xml:"journal"`
	Booktitle string   `xml:"booktitle"`
	Publisher string   `xml:"publisher"`
	EE        []string `xml:"ee"`
}

func (p dblpPub) venue() string {
	for _, v := range []string{p.Journal, p.Booktitle, p.Publisher} {
		if v != "" {
			return v
		}
	}
	return ""
}

// Fetch searches dblp authors and collects the newest publications of the
// first author hit that matches the subject's last name.
func (d *DBLP) Fetch(ctx context.Context, subject model.Subject) ([]model.Candidate, error) {
	fullName := subject.FullName()
	log := zap.L().With(zap.String("source", d.Name()), zap.String("subject", fullName))

	searchURL := fmt.Sprintf("%s/search/author/api?q=%s&format=json&h=%d",
		d.baseURL, url.QueryEscape(fullName), dblpSearchHits)

	var search dblpSearchResponse
	if err := d.client.GetJSON(ctx, searchURL, nil, &search); err != nil {
		return nil, err
	}

	hits := search.Result.Hits.Hit
	if len(hits) > dblpAuthorCap {
		hits = hits[:dblpAuthorCap]
	}

	var results []model.Candidate
	for _, hit := range hits {
		if !strings.Contains(strings.ToLower(hit.Info.Author), strings.ToLower(subject.LastName)) {
			continue
		}
		if hit.Info.URL == "" {
			continue
		}

		var person dblpPerson
		if err := d.client.GetXML(ctx, hit.Info.URL+".xml", &person); err != nil {
			log.Debug("author record fetch failed", zap.String("author", hit.Info.Author), zap.Error(err))
			continue
		}

		results = d.collect(subject, person)
		if len(results) > 0 {
			break
		}
	}

	log.Debug("dblp search complete", zap.Int("candidates", len(results)))
	return results, nil
}

func (d *DBLP) collect(subject model.Subject, person dblpPerson) []model.Candidate {
	type dated struct {
		pub  *dblpPub
		kind string
	}
	var pubs []dated
	for _, rec := range person.Records {
		if p, kind := rec.pub(); p != nil {
			pubs = append(pubs, dated{pub: p, kind: kind})
		}
	}
	sort.SliceStable(pubs, func(i, j int) bool { return pubs[i].pub.Year > pubs[j].pub.Year })
	if len(pubs) > dblpPubCap {
		pubs = pubs[:dblpPubCap]
	}

	results := make([]model.Candidate, 0, len(pubs))
	for _, entry := range pubs {
		p := entry.pub
		authors := strings.Join(p.Authors, ", ")
		venue := p.venue()

		pubURL := ""
		if len(p.EE) > 0 {
			pubURL = p.EE[0]
		}
		if pubURL == "" {
			pubURL = fmt.Sprintf("%s/search?q=%s", d.baseURL, strings.ReplaceAll(p.Title, " ", "+"))
		}

		confidence := d.scorer.Score(score.Input{
			CandidateName:     authors,
			TargetName:        subject.FullName(),
			TargetInstitution: subject.Institution,
			ScrapedText:       fmt.Sprintf("%s %s %s", p.Title, authors, venue),
			FieldOfStudy:      subject.FieldOfStudy,
		})

		venueLabel := venue
		if venueLabel == "" {
			venueLabel = "unknown venue"
		}

		results = append(results, model.Candidate{
			Source:      model.SourceDBLP,
			URL:         pubURL,
			Title:       p.Title,
			Description: fmt.Sprintf("Published in %s (%d)", venueLabel, p.Year),
			Authors:     authors,
			Confidence:  confidence,
			Status:      model.StatusPending,
			RawData: map[string]any{
				"full_authors": authors,
				"venue":        venue,
				"year":         p.Year,
				"type":         entry.kind,
			},
		})
	}
	return results
}
