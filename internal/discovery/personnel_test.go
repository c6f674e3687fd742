package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradmate/gradmate/internal/scrape"
)

func TestScrapePersonnel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/lab", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<h2>About</h2>
			<p>We study programming languages.</p>
			<h2>People</h2>
			<ul>
				<li>Jane Doe, Director (jdoe@cs.example.edu)</li>
				<li>John Smith <a href="/people/jsmith">profile</a></li>
			</ul>
			<h2>Publications</h2>
			<p>Dr. Someone Else appears here but outside the people section.</p>
		</body></html>`))
	})
	mux.HandleFunc("/people/jsmith", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>Reach me at jsmith@cs.example.edu for openings.</p></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	fetcher := scrape.NewFetcher(srv.Client())
	faculty := scrapePersonnel(context.Background(), fetcher, srv.URL+"/lab")

	require.NotEmpty(t, faculty)
	byName := make(map[string]Faculty)
	for _, f := range faculty {
		byName[f.Name] = f
	}

	jane, ok := byName["Jane Doe"]
	require.True(t, ok)
	assert.Equal(t, "jdoe@cs.example.edu", jane.Email)
	assert.Equal(t, "Director", jane.Role)

	john, ok := byName["John Smith"]
	require.True(t, ok)
	assert.Equal(t, "jsmith@cs.example.edu", john.Email)

	assert.NotContains(t, byName, "Someone Else")
}

func TestScrapePersonnelNoSection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><h2>About</h2><p>No roster here.</p></body></html>`))
	}))
	defer srv.Close()

	faculty := scrapePersonnel(context.Background(), scrape.NewFetcher(srv.Client()), srv.URL)
	assert.Empty(t, faculty)
}

func TestSuggestionCache(t *testing.T) {
	cache, err := newSuggestionCache()
	require.NoError(t, err)

	_, ok := cache.get("Georgia Tech", "CS")
	assert.False(t, ok)

	cache.put("Georgia Tech", "CS", "https://www.cc.gatech.edu/research")
	got, ok := cache.get("georgia tech ", "cs")
	require.True(t, ok)
	assert.Equal(t, "https://www.cc.gatech.edu/research", got)

	// Negative answers are remembered too.
	cache.put("Nowhere U", "CS", "")
	got, ok = cache.get("Nowhere U", "CS")
	require.True(t, ok)
	assert.Empty(t, got)
}
