package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/codyseavey/tcg-signals/internal/metrics"
)

// SearchCandidate is one product link on a catalog search results page.
type SearchCandidate struct {
	Href string `json:"href"`
	Text string `json:"text"`
}

// Searcher runs a free-text catalog search and returns the product links in
// page order. An empty slice with a nil error means the page had no results.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchCandidate, error)
}

// SearchURL builds the TCGplayer Pokemon product search URL for query.
func SearchURL(base, query string) string {
	params := url.Values{}
	params.Set("productLineName", "pokemon")
	params.Set("q", query)
	return base + "?" + params.Encode()
}

// HTMLSearcher fetches the search page over plain HTTP and parses product
// anchors from the returned markup. It only sees results that are present
// in the server-rendered HTML; BrowserSearcher handles JS-rendered pages.
type HTMLSearcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	searchURL string
}

func NewHTMLSearcher(searchURL string, opts HTTPOptions) *HTMLSearcher {
	return &HTMLSearcher{
		client:    newHTTPClient(opts),
		limiter:   newLimiter(opts.RequestsPerSecond),
		searchURL: searchURL,
	}
}

func (s *HTMLSearcher) Search(ctx context.Context, query string) ([]SearchCandidate, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		metrics.CollaboratorRequestDuration.WithLabelValues("search").Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, SearchURL(s.searchURL, query), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", tcgUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.CollaboratorErrorsTotal.WithLabelValues("search", "network").Inc()
		return nil, classifyTransportError("failed to fetch search page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.CollaboratorErrorsTotal.WithLabelValues("search", "status").Inc()
		return nil, fmt.Errorf("search page returned status %d: %w", resp.StatusCode, ErrTransientFetch)
	}

	candidates, err := ParseSearchCandidates(resp.Body)
	if err != nil {
		metrics.CollaboratorErrorsTotal.WithLabelValues("search", "decode").Inc()
		return nil, err
	}

	zap.L().Debug("search page parsed", zap.String("query", query), zap.Int("candidates", len(candidates)))
	return candidates, nil
}

// ParseSearchCandidates returns every anchor whose href points at a product
// page, with its whitespace-collapsed visible text, in document order.
func ParseSearchCandidates(r io.Reader) ([]SearchCandidate, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w: %w", ErrMalformedResponse, err)
	}

	var candidates []SearchCandidate
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := attr(n, "href"); isProductHref(href) {
				candidates = append(candidates, SearchCandidate{
					Href: href,
					Text: collapseSpace(nodeText(n)),
				})
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return candidates, nil
}

func isProductHref(href string) bool {
	return strings.HasPrefix(href, "/product/")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
