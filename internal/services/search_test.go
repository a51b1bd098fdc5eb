package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchFixture = `<!DOCTYPE html>
<html><body>
  <a href="/search/pokemon/product?page=2">Next page</a>
  <div class="search-result">
    <a href="/product/642113/pokemon-me01-mega-evolution-parasol-lady-255-182?Language=English">
      <span class="product-card__set-name">ME01: Mega Evolution</span>
      <span class="product-card__title">Parasol Lady - 255/182</span>
    </a>
  </div>
  <div class="search-result">
    <a href="/product/500001/pokemon-sv-paldea-evolved-parasol-lady">
      <span>SV02: Paldea Evolved</span> <span>Parasol Lady</span>
    </a>
  </div>
  <a href="https://www.tcgplayer.com/product/1/elsewhere">absolute link</a>
</body></html>`

func TestParseSearchCandidates(t *testing.T) {
	candidates, err := ParseSearchCandidates(strings.NewReader(searchFixture))
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "/product/642113/pokemon-me01-mega-evolution-parasol-lady-255-182?Language=English", candidates[0].Href)
	assert.Equal(t, "ME01: Mega Evolution Parasol Lady - 255/182", candidates[0].Text)
	assert.Equal(t, "SV02: Paldea Evolved Parasol Lady", candidates[1].Text)

	best := SelectBestCandidate(candidates, "Mega Evolution", "MEG")
	id, err := ExtractProductID(best.Href)
	require.NoError(t, err)
	assert.Equal(t, "642113", id)
}

func TestParseSearchCandidatesEmptyPage(t *testing.T) {
	candidates, err := ParseSearchCandidates(strings.NewReader(`<html><body><p>No results</p></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestHTMLSearcherSearch(t *testing.T) {
	var gotQuery, gotLine string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotLine = r.URL.Query().Get("productLineName")
		w.Write([]byte(searchFixture))
	}))
	defer server.Close()

	searcher := NewHTMLSearcher(server.URL+"/search/pokemon/product", HTTPOptions{})
	candidates, err := searcher.Search(context.Background(), "Parasol Lady 255/182")
	require.NoError(t, err)

	assert.Equal(t, "Parasol Lady 255/182", gotQuery)
	assert.Equal(t, "pokemon", gotLine)
	assert.Len(t, candidates, 2)
}

func TestHTMLSearcherStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	searcher := NewHTMLSearcher(server.URL, HTTPOptions{})
	_, err := searcher.Search(context.Background(), "Pikachu")
	assert.ErrorIs(t, err, ErrTransientFetch)
}

func TestSearchURL(t *testing.T) {
	got := SearchURL("https://www.tcgplayer.com/search/pokemon/product", "Parasol Lady 255/182")
	want := "https://www.tcgplayer.com/search/pokemon/product?productLineName=pokemon&q=Parasol+Lady+255%2F182"
	if got != want {
		t.Errorf("SearchURL() = %q, want %q", got, want)
	}
}
