package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fabfab/mini-rag/config"
)

const defaultCohereBaseURL = "https://api.cohere.com"

type cohereReranker struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

type cohereRerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

type cohereRerankResult struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type cohereRerankResponse struct {
	Results []cohereRerankResult `json:"results"`
}

func NewCohereReranker(cfg config.RerankConfig) Reranker {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultCohereBaseURL
	}

	return &cohereReranker{
		endpoint: base + "/v2/rerank",
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (r *cohereReranker) Rerank(ctx context.Context, query string, candidates []Candidate, topN int) ([]Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if topN <= 0 || topN > len(candidates) {
		topN = len(candidates)
	}

	documents := make([]string, len(candidates))
	for i, candidate := range candidates {
		documents[i] = candidate.Content
	}

	body, err := json.Marshal(cohereRerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: documents,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal cohere rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create cohere rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call cohere rerank API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("cohere rerank API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed cohereRerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode cohere rerank response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		if item.Index < 0 || item.Index >= len(candidates) {
			return nil, fmt.Errorf("cohere rerank returned out-of-range index %d", item.Index)
		}
		results = append(results, Result{
			ID:    candidates[item.Index].ID,
			Score: item.RelevanceScore,
		})
	}

	return results, nil
}

var _ Reranker = (*cohereReranker)(nil)
