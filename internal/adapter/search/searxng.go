package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
)

// searxngResponse represents the JSON response from SearXNG.
type searxngResponse struct {
	Query   string          `json:"query"`
	Results []searxngResult `json:"results"`
}

type searxngResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	ImgSrc  string  `json:"img_src"`
	Engine  string  `json:"engine"`
	Score   float64 `json:"score"`
}

// SearXNGEngine queries a SearXNG instance through its JSON API.
type SearXNGEngine struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	crawler    *Crawler
}

// NewSearXNGEngine creates a SearXNG engine. crawler may be nil.
func NewSearXNGEngine(baseURL string, timeout time.Duration, userAgent string, crawler *Crawler) *SearXNGEngine {
	return &SearXNGEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
		crawler:   crawler,
	}
}

// Search runs one query. Results are ordered by score, highest first.
func (e *SearXNGEngine) Search(ctx context.Context, query string, opts Options) (Result, error) {
	q := query
	if opts.Domain != "" {
		q = fmt.Sprintf("%s site:%s", query, opts.Domain)
	}

	params := url.Values{}
	params.Add("q", q)
	params.Add("format", "json")
	if cats := searxngCategories(opts.Categories); cats != "" {
		params.Add("categories", cats)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return Result{}, fmt.Errorf("SearXNG returned 403 Forbidden, JSON format may not be enabled")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Result{}, fmt.Errorf("SearXNG returned status %d: %s", resp.StatusCode, string(body))
	}

	var searchResp searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return Result{}, fmt.Errorf("failed to parse search response: %w", err)
	}

	sort.SliceStable(searchResp.Results, func(i, j int) bool {
		return searchResp.Results[i].Score > searchResp.Results[j].Score
	})

	var result Result
	for _, r := range searchResp.Results {
		if r.ImgSrc != "" {
			result.Images = append(result.Images, domain.ImageSource{URL: r.ImgSrc})
			continue
		}
		result.Texts = append(result.Texts, domain.TextSource{
			URL:     r.URL,
			Title:   r.Title,
			Content: r.Content,
		})
	}

	if e.crawler != nil && !opts.HasCategory(domain.CategoryImages) {
		result.Texts = e.crawler.Enrich(ctx, result.Texts)
	}
	return result, nil
}

// searxngCategories maps our categories onto SearXNG category names.
func searxngCategories(cats []domain.SearchCategory) string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range cats {
		var name string
		switch c {
		case domain.CategoryImages:
			name = "images"
		case domain.CategoryNews:
			name = "news"
		case domain.CategoryAcademic:
			name = "science"
		case domain.CategoryHackerNews:
			name = "it"
		default:
			name = "general"
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return strings.Join(out, ",")
}
