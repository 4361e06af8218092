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

// UniversityConfig points the adapter at an institutional staff directory.
type UniversityConfig struct {
	// DirectoryURL is the staff listing page to search for the subject.
	DirectoryURL string `yaml:"directory_url" mapstructure:"directory_url"`
	// ProfilePathHint restricts candidate links to actual profile pages
	// (e.g. "/osoba/"). Empty means any link with a matching name.
	ProfilePathHint string `yaml:"profile_path_hint" mapstructure:"profile_path_hint"`
	// InstitutionLabel names the institution the directory belongs to;
	// used as the scraped institution during scoring.
	InstitutionLabel string `yaml:"institution_label" mapstructure:"institution_label"`
}

// University scrapes an institutional staff directory: it locates the
// subject's profile link on the listing page, then scrapes the profile for
// contact details. Produces at most one candidate.
type University struct {
	client *Client
	scorer *score.Scorer
	cfg    UniversityConfig
}

// NewUniversity creates the institutional directory adapter.
func NewUniversity(client *Client, scorer *score.Scorer, cfg UniversityConfig) *University {
	return &University{client: client, scorer: scorer, cfg: cfg}
}

func (u *University) Name() string { return string(model.SourceUniversity) }

// Fetch finds the subject on the configured directory page and scrapes
// their profile.
func (u *University) Fetch(ctx context.Context, subject model.Subject) ([]model.Candidate, error) {
	if u.cfg.DirectoryURL == "" {
		return nil, nil
	}
	log := zap.L().With(zap.String("source", u.Name()), zap.String("subject", subject.FullName()))

	body, status, err := u.client.Get(ctx, u.cfg.DirectoryURL, nil)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		log.Debug("directory page unavailable", zap.Int("status", status))
		return nil, nil
	}

	profileURL, linkText := u.findProfileLink(body, subject)
	if profileURL == "" {
		log.Debug("subject not found on directory page")
		return nil, nil
	}

	profile := u.scrapeProfile(ctx, profileURL)

	confidence := u.scorer.Score(score.Input{
		CandidateName:      linkText,
		TargetName:         subject.FullName(),
		ScrapedInstitution: u.cfg.InstitutionLabel,
		TargetInstitution:  subject.Institution,
	})

	var details []string
	for _, d := range []string{profile.title, profile.room, profile.phone, profile.email} {
		if d != "" {
			details = append(details, d)
		}
	}

	cand := model.Candidate{
		Source:      model.SourceUniversity,
		URL:         profileURL,
		Title:       linkText,
		Description: strings.Join(details, " | "),
		Authors:     subject.FullName(),
		Institution: u.cfg.InstitutionLabel,
		Confidence:  confidence,
		Status:      model.StatusPending,
		RawData: map[string]any{
			"title": profile.title,
			"room":  profile.room,
			"phone": profile.phone,
			"email": profile.email,
		},
	}

	log.Debug("directory profile found", zap.String("url", profileURL))
	return []model.Candidate{cand}, nil
}

// findProfileLink scans the listing page for an anchor whose text contains
// both names. Directory listings print "Lastname Firstname, degrees", so
// containment of both tokens is the match rule.
func (u *University) findProfileLink(body []byte, subject model.Subject) (href, text string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}

	first := strings.ToLower(subject.FirstName)
	last := strings.ToLower(subject.LastName)

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link, _ := sel.Attr("href")
		if u.cfg.ProfilePathHint != "" && !strings.Contains(link, u.cfg.ProfilePathHint) {
			return true
		}
		linkText := strings.TrimSpace(sel.Text())
		lower := strings.ToLower(linkText)
		if strings.Contains(lower, last) && strings.Contains(lower, first) {
			href = u.resolve(link)
			text = linkText
			return false
		}
		return true
	})
	return href, text
}

type directoryProfile struct {
	title, room, phone, email string
}

// scrapeProfile pulls contact details off the profile page. Failures leave
// the profile empty; the listing hit alone is still a candidate.
func (u *University) scrapeProfile(ctx context.Context, profileURL string) directoryProfile {
	var profile directoryProfile

	body, status, err := u.client.Get(ctx, profileURL, nil)
	if err != nil || status != 200 {
		return profile
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return profile
	}

	if href, ok := doc.Find(`a[href^="mailto:"]`).First().Attr("href"); ok {
		profile.email = strings.TrimPrefix(href, "mailto:")
	}
	if href, ok := doc.Find(`a[href^="tel:"]`).First().Attr("href"); ok {
		profile.phone = strings.TrimPrefix(href, "tel:")
	}
	profile.title = strings.TrimSpace(doc.Find("h1").First().Text())

	// Room numbers are printed in labelled rows; match on the label text.
	doc.Find("li, tr, p").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		lower := strings.ToLower(text)
		if strings.HasPrefix(lower, "room") || strings.HasPrefix(lower, "pokój") || strings.HasPrefix(lower, "pokoj") {
			profile.room = text
			return false
		}
		return true
	})

	return profile
}

// resolve makes a directory-relative link absolute.
func (u *University) resolve(link string) string {
	base, err := url.Parse(u.cfg.DirectoryURL)
	if err != nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return base.ResolveReference(ref).String()
}
