package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/dep-brain/agent/contract"
	statex "github.com/tanpawarit/dep-brain/agent/state"
)

const (
	defaultBaseURL        = "https://api.tavily.com"
	defaultMaxQueryLength = 400
	maxResponseSizeBytes  = 2 << 20
)

type Config struct {
	APIKey         string        `envconfig:"API_KEY" split_words:"true"`
	BaseURL        string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.tavily.com"`
	MaxResults     int           `envconfig:"MAX_RESULTS" split_words:"true" default:"5"`
	MaxQueryLength int           `envconfig:"MAX_QUERY_LENGTH" split_words:"true" default:"400"`
	Timeout        time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"15s"`
}

type Option func(*TavilyClient)

func WithHTTPClient(client *http.Client) Option {
	return func(c *TavilyClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

var _ contractx.Searcher = (*TavilyClient)(nil)

// TavilyClient queries the Tavily search REST API. A client without an API key
// is valid and reports itself unavailable.
type TavilyClient struct {
	baseURL        string
	apiKey         string
	maxResults     int
	maxQueryLength int
	httpClient     *http.Client
}

type searchRequest struct {
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
	Detail json.RawMessage `json:"detail,omitempty"`
}

func NewTavilyClient(cfg Config, opts ...Option) (*TavilyClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: invalid search base url: %v", contractx.ErrValidation, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxQuery := cfg.MaxQueryLength
	if maxQuery <= 0 {
		maxQuery = defaultMaxQueryLength
	}

	client := &TavilyClient{
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxResults:     cfg.MaxResults,
		maxQueryLength: maxQuery,
		httpClient:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *TavilyClient) Available() bool {
	return c != nil && c.apiKey != ""
}

// Search returns at most maxResults results. It never fails: an unavailable
// client, a transport error or a malformed body all yield nil.
func (c *TavilyClient) Search(ctx context.Context, query string, maxResults int) []statex.SearchResult {
	if !c.Available() {
		return nil
	}
	query = TruncateQuery(strings.TrimSpace(query), c.maxQueryLength)
	if query == "" {
		return nil
	}
	if maxResults <= 0 {
		maxResults = c.maxResults
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	resp, err := c.exec(ctx, searchRequest{
		Query:       query,
		MaxResults:  maxResults,
		SearchDepth: "basic",
	})
	if err != nil {
		err = fmt.Errorf("%w: %v", contractx.ErrSearchUnavailable, err)
		log.Warn().Err(err).Str("query", query).Msg("web search failed")
		return nil
	}

	out := make([]statex.SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		if len(out) == maxResults {
			break
		}
		out = append(out, statex.SearchResult{
			Title:   strings.TrimSpace(r.Title),
			URL:     strings.TrimSpace(r.URL),
			Content: strings.TrimSpace(r.Content),
		})
	}
	return out
}

func (c *TavilyClient) exec(ctx context.Context, payload searchRequest) (*searchResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute search request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("search http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if len(parsed.Detail) > 0 && parsed.Results == nil {
		return nil, errors.New("search error: " + string(parsed.Detail))
	}
	return &parsed, nil
}

// TruncateQuery cuts query to at most max bytes, ending at the last whole word
// that fits. A single word longer than max is hard-cut.
func TruncateQuery(query string, max int) string {
	if max <= 0 || len(query) <= max {
		return query
	}
	cut := query[:max]
	// The rune at max starting a space means cut already ends on a word.
	if next := query[max]; next == ' ' || next == '\t' || next == '\n' {
		return strings.TrimRightFunc(cut, unicode.IsSpace)
	}
	if i := strings.LastIndexFunc(cut, unicode.IsSpace); i > 0 {
		return strings.TrimRightFunc(cut[:i], unicode.IsSpace)
	}
	return strings.ToValidUTF8(cut, "")
}
