package builtin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/MrSnowNB/project-alice/internal/capability"
	"github.com/MrSnowNB/project-alice/internal/logging"
)

// NoSearchResultsMessage is returned when the search yields nothing.
const NoSearchResultsMessage = "No search results found."

// EmptyURLMessage is returned when the top result carries a blank URL.
const EmptyURLMessage = "Search returned an empty URL."

// WebSearcher searches DuckDuckGo's HTML interface (no API key) and
// scrapes the text of the top result.
type WebSearcher struct {
	searchURL string
	client    *http.Client

	// maxChars caps the returned page text.
	maxChars int
}

// NewWebSearcher returns a searcher with production defaults.
func NewWebSearcher() *WebSearcher {
	return &WebSearcher{
		searchURL: "https://html.duckduckgo.com/html/",
		client:    &http.Client{Timeout: 15 * time.Second},
		maxChars:  4000,
	}
}

// searchTheWeb wraps the searcher as a capability.
func searchTheWeb(searcher *WebSearcher) *capability.Capability {
	return &capability.Capability{
		Name:        "search_the_web",
		Description: "Searches the web for a query and returns the text content of the top search result.",
		Source:      capability.SourceBuiltin,
		Schema: capability.Schema{
			Required: []string{"query"},
			Properties: map[string]capability.Property{
				"query": {Type: "string", Description: "The search query."},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			query := stringArg(args, "query")
			if query == "" {
				return errorPayload("The 'query' argument must be a non-empty string."), nil
			}
			return searcher.Search(ctx, query), nil
		},
	}
}

// Search runs the full flow: search, pick the top result, scrape its
// text. Every failure mode comes back as a JSON payload.
func (s *WebSearcher) Search(ctx context.Context, query string) string {
	logging.Capability("Web search: %q", query)

	href, found, err := s.firstResultURL(ctx, query)
	if err != nil {
		logging.CapabilityWarn("Web search failed: %v", err)
		return errorPayload("An error occurred during web search: %v", err)
	}
	if !found {
		return payload(resultPayload{Result: NoSearchResultsMessage})
	}

	target := resolveRedirect(href)
	if target == "" {
		return errorPayload("%s", EmptyURLMessage)
	}

	logging.CapabilityDebug("Scraping content from: %s", target)
	text, err := s.fetchPageText(ctx, target)
	if err != nil {
		logging.CapabilityWarn("Web scrape failed: %v", err)
		return errorPayload("An error occurred during web search: %v", err)
	}
	return payload(contentPayload{RetrievedContent: text})
}

// firstResultURL returns the href of the first organic result.
func (s *WebSearcher) firstResultURL(ctx context.Context, query string) (string, bool, error) {
	searchURL := fmt.Sprintf("%s?q=%s", s.searchURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	// Browser-like headers; the HTML endpoint rejects bare clients.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("search returned HTTP %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", false, fmt.Errorf("failed to parse search results: %w", err)
	}

	href := firstResultLink(doc)
	if href == "" {
		return "", false, nil
	}
	return href, true, nil
}

// firstResultLink finds the first anchor with the result__a class.
func firstResultLink(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "a" {
		for _, attr := range n.Attr {
			if attr.Key == "class" && strings.Contains(attr.Val, "result__a") {
				return getAttr(n, "href")
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href := firstResultLink(c); href != "" {
			return href
		}
	}
	return ""
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect to the real
// destination. Non-redirect URLs pass through unchanged.
func resolveRedirect(href string) string {
	raw := href
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return href
	}
	if strings.HasSuffix(u.Hostname(), "duckduckgo.com") && strings.HasPrefix(u.Path, "/l/") {
		return u.Query().Get("uddg")
	}
	return raw
}

// fetchPageText downloads the page and reduces it to cleaned text.
func (s *WebSearcher) fetchPageText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, pageURL)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	text := cleanLines(pageText(doc))
	runes := []rune(text)
	if len(runes) > s.maxChars {
		text = string(runes[:s.maxChars])
	}
	return text, nil
}

// pageText collects the document's text nodes, skipping script, style,
// and noscript subtrees.
func pageText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// cleanLines splits the raw text into trimmed phrases and drops the
// blanks, one phrase per line.
func cleanLines(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			phrase = strings.TrimSpace(phrase)
			if phrase != "" {
				out = append(out, phrase)
			}
		}
	}
	return strings.Join(out, "\n")
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
