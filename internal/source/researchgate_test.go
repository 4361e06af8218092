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

func TestResearchGate_Fetch_JSShell(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head></head><body><noscript>Please enable JavaScript to continue.</noscript></body></html>`)
	}))
	defer srv.Close()

	adapter := NewResearchGate(NewClient(), testScorer()).WithBaseURL(srv.URL)
	got, err := adapter.Fetch(context.Background(), testSubject())

	require.NoError(t, err)
	assert.Empty(t, got, "a JS shell parses as nothing, not an error")
}

func TestResearchGate_Fetch_ProfileLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="search-results">
			<a href="profile/Lukasz-Madej">Lukasz Madej</a>
			<a href="profile/Other-Person">Other Person</a>
			<a href="/terms">Terms of use</a>
			</div>`+longPadding+`</body></html>`)
	}))
	defer srv.Close()

	adapter := NewResearchGate(NewClient(), testScorer()).WithBaseURL(srv.URL)
	got, err := adapter.Fetch(context.Background(), testSubject())

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, srv.URL+"/profile/Lukasz-Madej", got[0].URL)
	assert.Equal(t, "Lukasz Madej", got[0].Authors)
}

// longPadding keeps the fixture above the JS-shell size heuristic.
var longPadding = func() string {
	s := ""
	for i := 0; i < 200; i++ {
		s += "<p>search result page content padding for realistic body size</p>"
	}
	return s
}()
