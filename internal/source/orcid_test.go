package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const orcidID = "0000-0001-2345-6789"

func orcidRecordJSON(givenName, familyName, employer string) string {
	return fmt.Sprintf(`{
		"person": {"name": {"given-names": {"value": %q}, "family-name": {"value": %q}}},
		"activities-summary": {
			"employments": {"affiliation-group": [
				{"summaries": [{"employment-summary": {"organization": {"name": %q}}}]}
			]},
			"educations": {"affiliation-group": []}
		}
	}`, givenName, familyName, employer)
}

const orcidWorksJSON = `{
	"group": [
		{"work-summary": [{
			"title": {"title": {"value": "Digital material representation"}},
			"publication-date": {"year": {"value": "2022"}},
			"external-ids": {"external-id": [{"external-id-type": "doi", "external-id-value": "10.1/dmr"}]}
		}]},
		{"work-summary": [{
			"title": {"title": {"value": "Multi scale rolling model"}},
			"publication-date": {"year": {"value": "2021"}},
			"external-ids": {"external-id": []}
		}]}
	]
}`

func newORCIDServer(t *testing.T, employer string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v3.0/search/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"result":[{"orcid-identifier":{"path":%q}}]}`, orcidID)
	})
	mux.HandleFunc("/v3.0/"+orcidID, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, orcidRecordJSON("Lukasz", "Madej", employer))
	})
	mux.HandleFunc("/v3.0/"+orcidID+"/works", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, orcidWorksJSON)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestORCID_Fetch_InstitutionMatch(t *testing.T) {
	srv := newORCIDServer(t, "AGH University of Science and Technology")
	adapter := NewORCID(NewClient(), testScorer()).WithBaseURL(srv.URL)

	got, err := adapter.Fetch(context.Background(), testSubject())
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Matched profile confidence (boosted, capped at 1.0) carries onto works.
	assert.Equal(t, "https://doi.org/10.1/dmr", got[0].URL)
	assert.Equal(t, "Digital material representation", got[0].Title)
	assert.Equal(t, "10.1/dmr", got[0].RawData["doi"])
	assert.InDelta(t, 1.0, got[0].Confidence, 1e-9)

	// Work without a DOI links to the profile.
	assert.Equal(t, "https://orcid.org/"+orcidID, got[1].URL)
	assert.Equal(t, "Published in 2021", got[1].Description)
}

func TestORCID_Fetch_MismatchedUniversitySkipsProfile(t *testing.T) {
	srv := newORCIDServer(t, "Politechnika Warszawska")
	adapter := NewORCID(NewClient(), testScorer()).WithBaseURL(srv.URL)

	got, err := adapter.Fetch(context.Background(), testSubject())
	require.NoError(t, err)
	assert.Empty(t, got, "mismatched university affiliation drops below the profile threshold")
}

func TestORCID_Fetch_SearchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	adapter := NewORCID(NewClient(), testScorer()).WithBaseURL(srv.URL)
	_, err := adapter.Fetch(context.Background(), testSubject())
	assert.Error(t, err)
}

func TestMatchAffiliations(t *testing.T) {
	target := "AGH University of Science and Technology"

	matched, mismatched := matchAffiliations(target, []string{"AGH University of Science and Technology"})
	assert.True(t, matched)
	assert.False(t, mismatched)

	matched, mismatched = matchAffiliations(target, []string{"Politechnika Krakowska"})
	assert.False(t, matched)
	assert.True(t, mismatched)

	matched, mismatched = matchAffiliations(target, []string{"Some Research Lab"})
	assert.False(t, matched)
	assert.False(t, mismatched)

	matched, mismatched = matchAffiliations("", []string{"AGH"})
	assert.False(t, matched)
	assert.False(t, mismatched)
}

func TestInstitutionTokens(t *testing.T) {
	tokens := institutionTokens("AGH University of Science and Technology")
	assert.Equal(t, []string{"agh", "science", "technology"}, tokens)
}
