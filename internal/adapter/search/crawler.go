package search

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
	"github.com/xiaot623/gogo/searchstream/internal/observability"
)

// maxPageWords caps the extracted text of one page.
const maxPageWords = 500

// Crawler fetches result pages and replaces search snippets with page text.
type Crawler struct {
	httpClient *http.Client
	maxSize    int64
	userAgent  string
	maxWorkers int
}

// NewCrawler creates a new crawler instance.
func NewCrawler(timeout time.Duration, maxWorkers int, maxSize int64, userAgent string) *Crawler {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Crawler{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		maxSize:    maxSize,
		userAgent:  userAgent,
		maxWorkers: maxWorkers,
	}
}

// Enrich crawls every text source in parallel. A source keeps its snippet
// when its page cannot be fetched or yields no text. Order is preserved.
func (c *Crawler) Enrich(ctx context.Context, texts []domain.TextSource) []domain.TextSource {
	out := make([]domain.TextSource, len(texts))
	copy(out, texts)
	if len(texts) == 0 {
		return out
	}

	jobs := make(chan int, len(texts))
	numWorkers := c.maxWorkers
	if len(texts) < numWorkers {
		numWorkers = len(texts)
	}

	logger := observability.LoggerFromContext(ctx)
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				title, text, err := c.crawl(ctx, out[idx].URL)
				if err != nil {
					logger.Debug("crawl failed", "url", out[idx].URL, "error", err)
					continue
				}
				if text != "" {
					out[idx].Content = text
				}
				if out[idx].Title == "" {
					out[idx].Title = title
				}
			}
		}()
	}

	for i := range texts {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return out
}

func (c *Crawler) crawl(ctx context.Context, urlStr string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		return "", "", fmt.Errorf("non-HTML content type: %s", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize))
	if err != nil {
		return "", "", fmt.Errorf("failed to read body: %w", err)
	}

	return ExtractText(body)
}

// ExtractText returns the page title and its visible body text.
func ExtractText(htmlContent []byte) (title string, text string, err error) {
	doc, err := html.Parse(bytes.NewReader(htmlContent))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	title = strings.TrimSpace(findTitle(doc))

	var b strings.Builder
	collectText(doc, &b)
	words := strings.Fields(b.String())
	if len(words) > maxPageWords {
		return title, strings.Join(words[:maxPageWords], " ") + "...", nil
	}
	return title, strings.Join(words, " "), nil
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		var b strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
		}
		return b.String()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := findTitle(c); title != "" {
			return title
		}
	}
	return ""
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "nav", "footer", "header", "aside", "title", "noscript":
			return
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
