package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
)

// openSearchPage is a document in the page index.
type openSearchPage struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Summary string `json:"summary"`
}

type openSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source openSearchPage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// OpenSearchEngine answers text queries from a self-hosted page index.
// It has no image results.
type OpenSearchEngine struct {
	client *opensearch.Client
	index  string
	size   int
}

// NewOpenSearchClient connects to the given address.
func NewOpenSearchClient(addr string) (*opensearch.Client, error) {
	return opensearch.NewClient(opensearch.Config{Addresses: []string{addr}})
}

// NewOpenSearchEngine searches index, returning at most size hits.
func NewOpenSearchEngine(client *opensearch.Client, index string, size int) *OpenSearchEngine {
	if size < 1 {
		size = 10
	}
	return &OpenSearchEngine{client: client, index: index, size: size}
}

func (e *OpenSearchEngine) Search(ctx context.Context, query string, opts Options) (Result, error) {
	if opts.HasCategory(domain.CategoryImages) {
		return Result{}, nil
	}

	body, err := json.Marshal(buildPageQuery(query, opts.Domain, e.size))
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{e.index},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, e.client)
	if err != nil {
		return Result{}, fmt.Errorf("failed to execute search request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return Result{}, fmt.Errorf("error searching pages: %s", res.String())
	}

	var parsed openSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("failed to parse search response: %w", err)
	}

	var result Result
	for _, hit := range parsed.Hits.Hits {
		page := hit.Source
		content := page.Content
		if content == "" {
			content = page.Summary
		}
		title := page.Title
		if title == "" {
			title = page.URL
		}
		result.Texts = append(result.Texts, domain.TextSource{URL: page.URL, Title: title, Content: content})
	}
	return result, nil
}

func buildPageQuery(query, site string, size int) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": []interface{}{
			map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":  query,
					"fields": []string{"title^2", "summary", "content"},
				},
			},
		},
	}
	if site != "" {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{
				"match_phrase": map[string]interface{}{"url": site},
			},
		}
	}
	return map[string]interface{}{
		"size":  size,
		"query": map[string]interface{}{"bool": boolQuery},
	}
}
