package serp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/FranksOps/serprank/pkg/httpclient"
)

// DefaultSerpAPIBase is SerpApi's JSON search endpoint.
const DefaultSerpAPIBase = "https://serpapi.com/search.json"

// SerpApi reports a successful search with zero organic results through its
// error field; that is an empty page, not a failure.
const serpAPINoResults = "hasn't returned any results"

// SerpAPIConfig configures the SerpApi provider.
type SerpAPIConfig struct {
	APIKey  string
	BaseURL string // empty means DefaultSerpAPIBase
	Client  *httpclient.Client
}

// SerpAPI queries Google through serpapi.com.
type SerpAPI struct {
	apiKey  string
	baseURL string
	client  *httpclient.Client
}

var _ Provider = (*SerpAPI)(nil)

type serpAPIResponse struct {
	Error          string   `json:"error"`
	OrganicResults []Result `json:"organic_results"`
}

// NewSerpAPI builds a SerpApi provider. A nil Client gets a default one.
func NewSerpAPI(cfg SerpAPIConfig) (*SerpAPI, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("serpapi: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSerpAPIBase
	}
	if cfg.Client == nil {
		c, err := httpclient.New(httpclient.Config{})
		if err != nil {
			return nil, fmt.Errorf("serpapi: %w", err)
		}
		cfg.Client = c
	}
	return &SerpAPI{apiKey: cfg.APIKey, baseURL: cfg.BaseURL, client: cfg.Client}, nil
}

// Name returns the engine identifier.
func (s *SerpAPI) Name() string { return "serpapi" }

// Search issues one engine=google request and returns the organic results.
func (s *SerpAPI) Search(ctx context.Context, q Query) ([]Result, error) {
	params := url.Values{
		"engine":  {"google"},
		"q":       {q.Text},
		"api_key": {s.apiKey},
		"num":     {strconv.Itoa(q.Limit())},
	}
	if q.Country != "" {
		params.Set("gl", q.Country)
	}
	if q.Language != "" {
		params.Set("hl", q.Language)
	}

	resp, err := s.client.Get(ctx, s.baseURL+"?"+params.Encode(), nil)

	var statusErr *httpclient.StatusError
	if err != nil && !errors.As(err, &statusErr) {
		return nil, s.redact(fmt.Errorf("serpapi: %w", err))
	}

	var body serpAPIResponse
	if decodeErr := json.Unmarshal(resp.Body, &body); decodeErr != nil {
		if statusErr != nil {
			return nil, s.redact(fmt.Errorf("serpapi: %w", statusErr))
		}
		return nil, fmt.Errorf("serpapi: malformed response: %w", decodeErr)
	}

	if body.Error != "" {
		if statusErr == nil && strings.Contains(body.Error, serpAPINoResults) {
			return []Result{}, nil
		}
		if statusErr != nil {
			return nil, fmt.Errorf("serpapi: status %d: %s", statusErr.StatusCode, body.Error)
		}
		return nil, fmt.Errorf("serpapi: %s", body.Error)
	}
	if statusErr != nil {
		return nil, s.redact(fmt.Errorf("serpapi: %w", statusErr))
	}

	return number(body.OrganicResults, q.Limit()), nil
}

// redact strips the API key, raw or query-escaped, from err's message.
// Transport errors embed the full request URL, and these messages end up in
// exported tables.
func (s *SerpAPI) redact(err error) error {
	msg := err.Error()
	for _, secret := range []string{s.apiKey, url.QueryEscape(s.apiKey)} {
		msg = strings.ReplaceAll(msg, secret, "REDACTED")
	}
	if msg == err.Error() {
		return err
	}
	return &redactedError{msg: msg, err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
