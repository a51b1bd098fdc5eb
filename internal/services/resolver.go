package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/codyseavey/tcg-signals/internal/metrics"
)

// IdentityResolver turns a free-text card name into a catalog identifier.
// Cached names never reach the searcher. Unknown names are searched with a
// fixed list of queries; the first query with any results wins.
type IdentityResolver struct {
	store        IdentityStore
	searcher     Searcher
	searcherName string
	setCode      string
}

// NewIdentityResolver wires a store and a searcher. setCode is the fallback
// query suffix; when empty it is derived from the set hint on each call.
func NewIdentityResolver(store IdentityStore, searcher Searcher, searcherName, setCode string) *IdentityResolver {
	return &IdentityResolver{
		store:        store,
		searcher:     searcher,
		searcherName: searcherName,
		setCode:      setCode,
	}
}

// Resolve returns the catalog identifier for cardName. ErrNotFound is a
// normal outcome for names the catalog cannot match.
func (r *IdentityResolver) Resolve(ctx context.Context, cardName, setHint string) (string, error) {
	log := zap.L().With(zap.String("card", cardName))

	if id, ok := r.store.Get(cardName); ok && id != "" {
		metrics.IdentityLookupsTotal.WithLabelValues("cache").Inc()
		log.Debug("identity cache hit", zap.String("catalog_id", id))
		return id, nil
	}

	setCode := r.setCode
	if setCode == "" {
		setCode = SetCodeForHint(setHint)
	}

	var candidates []SearchCandidate
	var searchErrs []error
	queries := BuildSearchQueries(cardName, setHint, setCode)
	for _, query := range queries {
		found, err := r.searcher.Search(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			metrics.SearchQueriesTotal.WithLabelValues(r.searcherName, "error").Inc()
			log.Warn("search query failed", zap.String("query", query), zap.Error(err))
			searchErrs = append(searchErrs, err)
			continue
		}
		if len(found) == 0 {
			metrics.SearchQueriesTotal.WithLabelValues(r.searcherName, "empty").Inc()
			log.Debug("search query returned nothing", zap.String("query", query))
			continue
		}
		metrics.SearchQueriesTotal.WithLabelValues(r.searcherName, "hit").Inc()
		candidates = found
		break
	}

	if len(candidates) == 0 {
		metrics.IdentityLookupsTotal.WithLabelValues("not_found").Inc()
		if len(searchErrs) == len(queries) {
			return "", fmt.Errorf("%w: %q: %w", ErrNotFound, cardName, errors.Join(searchErrs...))
		}
		return "", fmt.Errorf("%w: %q", ErrNotFound, cardName)
	}

	best := SelectBestCandidate(candidates, setHint, setCode)
	id, err := ExtractProductID(best.Href)
	if err != nil {
		metrics.IdentityLookupsTotal.WithLabelValues("not_found").Inc()
		return "", fmt.Errorf("%w: %q: %w", ErrNotFound, cardName, err)
	}

	if err := r.store.Put(cardName, id); err != nil {
		// The identifier is still good for this run; it just will not survive it.
		log.Error("failed to cache identity", zap.String("catalog_id", id), zap.Error(err))
	}

	metrics.IdentityLookupsTotal.WithLabelValues("search").Inc()
	log.Info("identity resolved", zap.String("catalog_id", id), zap.String("match", best.Text))
	return id, nil
}

// BuildSearchQueries returns the fallback queries in the order they are
// tried: bare name, name + set hint, name + set code. Empty suffixes and
// duplicate queries are dropped.
func BuildSearchQueries(cardName, setHint, setCode string) []string {
	cardName = strings.TrimSpace(cardName)
	queries := []string{cardName}
	seen := map[string]bool{cardName: true}
	for _, suffix := range []string{setHint, setCode} {
		suffix = strings.TrimSpace(suffix)
		if suffix == "" {
			continue
		}
		q := cardName + " " + suffix
		if seen[q] {
			continue
		}
		seen[q] = true
		queries = append(queries, q)
	}
	return queries
}

// SelectBestCandidate picks the first candidate whose visible text mentions
// the set hint or contains the set code as a whole word (case-insensitive),
// falling back to the first candidate. candidates must not be empty.
func SelectBestCandidate(candidates []SearchCandidate, setHint, setCode string) SearchCandidate {
	if c, ok := firstMentioningSet(candidates, setHint, setCode); ok {
		return c
	}
	return candidates[0]
}

func firstMentioningSet(candidates []SearchCandidate, setHint, setCode string) (SearchCandidate, bool) {
	hint := strings.ToLower(strings.TrimSpace(setHint))
	code := strings.ToLower(strings.TrimSpace(setCode))
	for _, c := range candidates {
		text := strings.ToLower(c.Text)
		if (hint != "" && strings.Contains(text, hint)) || (code != "" && hasWord(text, code)) {
			return c, true
		}
	}
	return SearchCandidate{}, false
}

// hasWord reports whether word appears in text as a run of letters and
// digits bounded by anything else.
func hasWord(text, word string) bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return slices.Contains(fields, word)
}

// ExtractProductID returns the path segment after "/product/" in a relative
// or absolute product link.
func ExtractProductID(href string) (string, error) {
	path := href
	if u, err := url.Parse(href); err == nil {
		path = u.Path
	}

	_, rest, ok := strings.Cut(path, "/product/")
	if !ok {
		return "", fmt.Errorf("no product path in %q", href)
	}
	id, _, _ := strings.Cut(rest, "/")
	if id == "" {
		return "", fmt.Errorf("empty product id in %q", href)
	}
	return id, nil
}
