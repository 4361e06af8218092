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

const scholarHTML = `<html><body>
<div class="gs_ri">
  <h3 class="gs_rt"><a href="https://example.edu/paper1">Cellular automata in metal forming</a></h3>
  <div class="gs_a">L Madej, K Perzynski - AGH University - agh.edu.pl</div>
  <div class="gs_rs">A simulation framework for multi scale modeling of deformation.</div>
</div>
<div class="gs_ri">
  <h3 class="gs_rt">Result without a link</h3>
  <div class="gs_a">L Madej - Springer</div>
  <div class="gs_rs">Snippet text.</div>
</div>
</body></html>`

func TestScholar_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/scholar", r.URL.Path)
		assert.Equal(t, "Lukasz Madej", r.URL.Query().Get("q"))
		fmt.Fprint(w, scholarHTML)
	}))
	defer srv.Close()

	adapter := NewScholar(NewClient(), testScorer()).WithBaseURL(srv.URL)
	got, err := adapter.Fetch(context.Background(), testSubject())

	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Cellular automata in metal forming", got[0].Title)
	assert.Equal(t, "https://example.edu/paper1", got[0].URL)
	assert.Contains(t, got[0].Authors, "L Madej")
	assert.Greater(t, got[0].Confidence, 0.0)

	// Linkless results fall back to the search URL itself.
	assert.Contains(t, got[1].URL, srv.URL)
}

func TestScholar_Fetch_BlockedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>Our systems have detected unusual traffic. Please solve the CAPTCHA.</html>")
	}))
	defer srv.Close()

	adapter := NewScholar(NewClient(), testScorer()).WithBaseURL(srv.URL)
	got, err := adapter.Fetch(context.Background(), testSubject())

	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScholar_Fetch_ResultCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>")
		for i := 0; i < 10; i++ {
			fmt.Fprintf(w, `<div class="gs_ri"><h3 class="gs_rt"><a href="https://x/%d">Paper %d</a></h3><div class="gs_a">L Madej</div></div>`, i, i)
		}
		fmt.Fprint(w, "</body></html>")
	}))
	defer srv.Close()

	adapter := NewScholar(NewClient(), testScorer()).WithBaseURL(srv.URL)
	got, err := adapter.Fetch(context.Background(), testSubject())

	require.NoError(t, err)
	assert.Len(t, got, scholarResultCap)
}
