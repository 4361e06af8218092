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
	// orcidProfileCap bounds how many search hits get a full record lookup.
	orcidProfileCap = 5

	// Profile matching thresholds: a profile must reach the base threshold
	// before its works are fetched; a confirmed institution match lowers
	// the bar.
	orcidProfileThreshold        = 0.40
	orcidProfileThresholdOnMatch = 0.30

	// Affiliation adjustments applied on top of the scored profile.
	orcidInstitutionBoost   = 0.5
	orcidMismatchPenalty    = 0.5
	orcidHighConfidenceBand = 0.8
)

// affiliationMarkers flag an affiliation as a university-class employer.
// A university affiliation that shares nothing with the target institution
// is a strong signal the profile belongs to a different person.
var affiliationMarkers = []string{"university", "uniwersytet", "politechnika", "uczelnia", "institute", "college"}

// ORCID performs the two-stage lookup against the public ORCID API:
// candidate profiles are matched first, then each accepted profile's works
// are fetched and turned into candidates.
type ORCID struct {
	client  *Client
	scorer  *score.Scorer
	baseURL string
}

// NewORCID creates the ORCID adapter.
func NewORCID(client *Client, scorer *score.Scorer) *ORCID {
	return &ORCID{
		client:  client,
		scorer:  scorer,
		baseURL: "https://pub.orcid.org",
	}
}

// WithBaseURL overrides the API base (for tests).
func (o *ORCID) WithBaseURL(u string) *ORCID {
	o.baseURL = strings.TrimSuffix(u, "/")
	return o
}

func (o *ORCID) Name() string { return string(model.SourceORCID) }

type orcidSearch struct {
	Result []struct {
		Identifier struct {
			Path string `json:"path"`
		} `json:"orcid-identifier"`
	} `json:"result"`
}

type orcidRecord struct {
	Person struct {
		Name struct {
			GivenNames orcidValue `json:"given-names"`
			FamilyName orcidValue `json:"family-name"`
		} `json:"name"`
	} `json:"person"`
	Activities struct {
		Employments orcidAffiliations `json:"employments"`
		Educations  orcidAffiliations `json:"educations"`
	} `json:"activities-summary"`
}

type orcidValue struct {
	Value string `json:"value"`
}

type orcidAffiliations struct {
	Groups []struct {
		Summaries []struct {
			Employment *orcidAffiliation `json:"employment-summary"`
			Education  *orcidAffiliation `json:"education-summary"`
		} `json:"summaries"`
	} `json:"affiliation-group"`
}

type orcidAffiliation struct {
	Organization struct {
		Name string `json:"name"`
	} `json:"organization"`
}

func (a orcidAffiliations) names() []string {
	var out []string
	for _, group := range a.Groups {
		for _, s := range group.Summaries {
			for _, aff := range []*orcidAffiliation{s.Employment, s.Education} {
				if aff != nil && aff.Organization.Name != "" {
					out = append(out, aff.Organization.Name)
				}
			}
		}
	}
	return out
}

type orcidWorks struct {
	Group []struct {
		WorkSummary []orcidWork `json:"work-summary"`
	} `json:"group"`
}

type orcidWork struct {
	Title struct {
		Title orcidValue `json:"title"`
	} `json:"title"`
	PublicationDate *struct {
		Year orcidValue `json:"year"`
	} `json:"publication-date"`
	ExternalIDs struct {
		ExternalID []struct {
			Type  string `json:"external-id-type"`
			Value string `json:"external-id-value"`
		} `json:"external-id"`
	} `json:"external-ids"`
}

func (w orcidWork) doi() string {
	for _, id := range w.ExternalIDs.ExternalID {
		if id.Type == "doi" {
			return id.Value
		}
	}
	return ""
}

func (w orcidWork) year() string {
	if w.PublicationDate != nil && w.PublicationDate.Year.Value != "" {
		return w.PublicationDate.Year.Value
	}
	return "Unknown"
}

// Fetch searches ORCID profiles by name, filters them through the profile
// threshold, and collects works of each accepted profile.
func (o *ORCID) Fetch(ctx context.Context, subject model.Subject) ([]model.Candidate, error) {
	log := zap.L().With(zap.String("source", o.Name()), zap.String("subject", subject.FullName()))

	query := fmt.Sprintf("given-names:%s AND family-name:%s",
		url.QueryEscape(subject.FirstName), url.QueryEscape(subject.LastName))
	searchURL := fmt.Sprintf("%s/v3.0/search/?q=%s", o.baseURL, query)

	var search orcidSearch
	if err := o.client.GetJSON(ctx, searchURL, nil, &search); err != nil {
		return nil, err
	}

	hits := search.Result
	if len(hits) > orcidProfileCap {
		hits = hits[:orcidProfileCap]
	}
	log.Debug("orcid profiles found", zap.Int("checking", len(hits)))

	var results []model.Candidate
	for _, hit := range hits {
		orcidID := hit.Identifier.Path
		if orcidID == "" {
			continue
		}

		var record orcidRecord
		if err := o.client.GetJSON(ctx, fmt.Sprintf("%s/v3.0/%s", o.baseURL, url.PathEscape(orcidID)), nil, &record); err != nil {
			log.Debug("record fetch failed", zap.String("orcid", orcidID), zap.Error(err))
			continue
		}

		profileName := strings.TrimSpace(record.Person.Name.GivenNames.Value + " " + record.Person.Name.FamilyName.Value)
		if profileName == "" {
			continue
		}

		affiliations := append(record.Activities.Employments.names(), record.Activities.Educations.names()...)
		scrapedInstitution := ""
		if len(affiliations) > 0 {
			scrapedInstitution = affiliations[0]
		}

		confidence := o.scorer.Score(score.Input{
			CandidateName:      profileName,
			TargetName:         subject.FullName(),
			ScrapedInstitution: scrapedInstitution,
			TargetInstitution:  subject.Institution,
		})

		matched, mismatched := matchAffiliations(subject.Institution, affiliations)
		if matched {
			confidence = model.RoundScore(confidence + orcidInstitutionBoost)
		} else if mismatched {
			confidence = model.RoundScore(confidence - orcidMismatchPenalty)
		}

		threshold := orcidProfileThreshold
		if matched {
			threshold = orcidProfileThresholdOnMatch
		}

		log.Debug("orcid profile scored",
			zap.String("profile", profileName),
			zap.String("orcid", orcidID),
			zap.Float64("confidence", confidence),
			zap.Bool("institution_match", matched),
		)

		if confidence < threshold {
			continue
		}

		var works orcidWorks
		if err := o.client.GetJSON(ctx, fmt.Sprintf("%s/v3.0/%s/works", o.baseURL, url.PathEscape(orcidID)), nil, &works); err != nil {
			log.Debug("works fetch failed", zap.String("orcid", orcidID), zap.Error(err))
			continue
		}

		for _, group := range works.Group {
			if len(group.WorkSummary) == 0 {
				continue
			}
			work := group.WorkSummary[0]
			results = append(results, o.candidate(subject, orcidID, profileName, scrapedInstitution, confidence, matched, work))
		}
	}

	log.Debug("orcid search complete", zap.Int("candidates", len(results)))
	return results, nil
}

func (o *ORCID) candidate(subject model.Subject, orcidID, profileName, scrapedInstitution string,
	profileConfidence float64, institutionMatch bool, work orcidWork) model.Candidate {

	title := work.Title.Title.Value
	if title == "" {
		title = "Untitled Work"
	}
	doi := work.doi()

	workURL := "https://orcid.org/" + orcidID
	if doi != "" {
		workURL = "https://doi.org/" + doi
	}

	// A confirmed profile carries its confidence onto every work; weaker
	// profiles get each work re-scored against the title text.
	confidence := profileConfidence
	if !institutionMatch && profileConfidence < orcidHighConfidenceBand {
		confidence = o.scorer.Score(score.Input{
			CandidateName:      profileName,
			TargetName:         subject.FullName(),
			ScrapedInstitution: scrapedInstitution,
			TargetInstitution:  subject.Institution,
			ScrapedText:        title,
			FieldOfStudy:       subject.FieldOfStudy,
		})
	}

	return model.Candidate{
		Source:      model.SourceORCID,
		URL:         workURL,
		Title:       title,
		Description: "Published in " + work.year(),
		Authors:     profileName,
		Confidence:  confidence,
		Status:      model.StatusPending,
		RawData: map[string]any{
			"orcid_id": orcidID,
			"year":     work.year(),
			"doi":      doi,
		},
	}
}

// matchAffiliations compares a profile's affiliations against the target
// institution. A significant token of the target appearing in any
// affiliation is a match; a university-class affiliation sharing nothing
// with the target is a mismatch. Both false when no target institution is
// known.
func matchAffiliations(target string, affiliations []string) (matched, mismatched bool) {
	if target == "" || len(affiliations) == 0 {
		return false, false
	}
	tokens := institutionTokens(target)

	for _, aff := range affiliations {
		affLower := strings.ToLower(aff)
		for _, tok := range tokens {
			if strings.Contains(affLower, tok) {
				return true, false
			}
		}
	}
	for _, aff := range affiliations {
		affLower := strings.ToLower(aff)
		for _, marker := range affiliationMarkers {
			if strings.Contains(affLower, marker) {
				return false, true
			}
		}
	}
	return false, false
}

// institutionTokens extracts the distinguishing lower-cased tokens of an
// institution name, dropping generic words that match any university.
func institutionTokens(name string) []string {
	generic := map[string]bool{
		"university": true, "institute": true, "college": true, "school": true,
		"department": true, "faculty": true, "the": true, "and": true,
		"of": true, "in": true, "for": true,
	}
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(name)) {
		tok = strings.Trim(tok, ".,()")
		if len(tok) < 3 || generic[tok] {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}
