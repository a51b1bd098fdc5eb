package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/codyseavey/tcg-signals/internal/metrics"
)

const productAnchorSelector = "a[href^='/product/']"

// BrowserOptions configures the headless Chrome session.
type BrowserOptions struct {
	SearchURL string
	Headless  bool
	Bin       string
	// WaitTimeout bounds both navigation and the wait for result anchors.
	WaitTimeout time.Duration
	Proxy       *url.URL
}

// BrowserSearcher renders the search page in one long-lived Chrome tab,
// reused for every query. The owner must call Close on every exit path.
type BrowserSearcher struct {
	opts BrowserOptions

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// NewBrowserSearcher launches Chrome and opens the search tab.
func NewBrowserSearcher(ctx context.Context, opts BrowserOptions) (*BrowserSearcher, error) {
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = 15 * time.Second
	}

	l := launcher.New().Headless(opts.Headless)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	if opts.Proxy != nil {
		l = l.Proxy(opts.Proxy.Host)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	if opts.Proxy != nil && opts.Proxy.User != nil {
		pass, _ := opts.Proxy.User.Password()
		wait := browser.HandleAuth(opts.Proxy.User.Username(), pass)
		go func() {
			if err := wait(); err != nil {
				zap.L().Debug("browser proxy auth handler stopped", zap.Error(err))
			}
		}()
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("open search tab: %w", err)
	}

	zap.L().Info("browser session started", zap.Bool("headless", opts.Headless))
	return &BrowserSearcher{
		opts:     opts,
		launcher: l,
		browser:  browser,
		page:     page,
	}, nil
}

// Search navigates to the results page and waits up to WaitTimeout for
// product anchors. A wait that times out is reported as zero candidates.
func (s *BrowserSearcher) Search(ctx context.Context, query string) ([]SearchCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page == nil {
		return nil, errors.New("browser session is closed")
	}

	start := time.Now()
	defer func() {
		metrics.CollaboratorRequestDuration.WithLabelValues("search").Observe(time.Since(start).Seconds())
	}()

	page := s.page.Context(ctx).Timeout(s.opts.WaitTimeout)
	defer page.CancelTimeout()

	if err := page.Navigate(SearchURL(s.opts.SearchURL, query)); err != nil {
		metrics.CollaboratorErrorsTotal.WithLabelValues("search", "network").Inc()
		return nil, classifyTransportError("navigate to search page", err)
	}

	if _, err := page.Element(productAnchorSelector); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			zap.L().Debug("no product anchors before timeout", zap.String("query", query))
			return nil, nil
		}
		metrics.CollaboratorErrorsTotal.WithLabelValues("search", "network").Inc()
		return nil, classifyTransportError("wait for search results", err)
	}

	elements, err := page.Elements(productAnchorSelector)
	if err != nil {
		return nil, classifyTransportError("read search results", err)
	}

	candidates := make([]SearchCandidate, 0, len(elements))
	for _, el := range elements {
		href, err := el.Attribute("href")
		if err != nil || href == nil {
			continue
		}
		text, err := el.Text()
		if err != nil {
			text = ""
		}
		candidates = append(candidates, SearchCandidate{
			Href: *href,
			Text: collapseSpace(text),
		})
	}
	return candidates, nil
}

// Close shuts the tab, the browser and the launched process. Safe to call
// more than once.
func (s *BrowserSearcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return nil
	}

	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	err := s.browser.Close()
	s.browser = nil
	s.launcher.Cleanup()
	zap.L().Info("browser session closed")
	return err
}
