// Package duckduckgo implements search.Provider against the DuckDuckGo HTML
// endpoint, which needs no API key.
package duckduckgo

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/noxenys/AI-Knowledge-Agent/internal/transport"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/constants"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/errors"
	"github.com/noxenys/AI-Knowledge-Agent/pkg/search"
)

// DefaultEndpoint is the HTML results page.
const DefaultEndpoint = "https://html.duckduckgo.com/html/"

// Provider queries DuckDuckGo.
type Provider struct {
	endpoint string
	client   *transport.Client
}

// New returns a Provider. An empty endpoint selects DefaultEndpoint.
func New(endpoint string, timeout time.Duration) *Provider {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = constants.SearchTimeout
	}
	return &Provider{
		endpoint: endpoint,
		client:   transport.New("duckduckgo", &transport.NoAuth{}, transport.WithTimeout(timeout)),
	}
}

// Name implements search.Provider.
func (p *Provider) Name() string { return "duckduckgo" }

// Search implements search.Provider.
func (p *Provider) Search(ctx context.Context, query string, maxResults int) ([]search.Result, error) {
	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.WrapResource("create", "request", "search", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &errors.SearchUnavailableError{Provider: p.Name(), Query: query, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &errors.SearchUnavailableError{
			Provider: p.Name(),
			Query:    query,
			Err:      errors.NewAPIError(p.Name(), resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	results, err := Parse(resp.Body, maxResults)
	if err != nil {
		return nil, &errors.SearchUnavailableError{Provider: p.Name(), Query: query, Err: err}
	}
	return results, nil
}

// Parse extracts up to maxResults organic results from a results page.
// Result links carry the class "result__a"; redirect links are unwrapped.
func Parse(r io.Reader, maxResults int) ([]search.Result, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, errors.WrapParse("html", "search results", err)
	}

	var results []search.Result
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "result__a") {
			if href := resolveHref(attr(n, "href")); href != "" {
				results = append(results, search.Result{Title: strings.TrimSpace(text(n)), URL: href})
				if maxResults > 0 && len(results) >= maxResults {
					return false
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(doc)
	return results, nil
}

// resolveHref unwraps "//duckduckgo.com/l/?uddg=<target>" redirect links.
func resolveHref(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Hostname(), "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		if target := u.Query().Get("uddg"); target != "" {
			return target
		}
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return href
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}
