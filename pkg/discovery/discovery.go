// Package discovery is a client for the Watson Discovery v1 query API.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	contractx "github.com/tanpawarit/storebot/bot/contract"
)

const maxResponseSizeBytes = 4 << 20

type Config struct {
	Username      string        `envconfig:"USERNAME" split_words:"true"`
	Password      string        `envconfig:"PASSWORD" split_words:"true"`
	EnvironmentID string        `envconfig:"ENVIRONMENT_ID" split_words:"true"`
	CollectionID  string        `envconfig:"COLLECTION_ID" split_words:"true"`
	BaseURL       string        `envconfig:"BASE_URL" split_words:"true" default:"https://gateway.watsonplatform.net/discovery/api"`
	Version       string        `envconfig:"VERSION" split_words:"true" default:"2016-11-07"`
	Timeout       time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

// Configured reports whether every field required to reach Discovery is
// set. The bot treats an unconfigured search service as dev/demo mode.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.Username) != "" &&
		strings.TrimSpace(c.Password) != "" &&
		strings.TrimSpace(c.EnvironmentID) != "" &&
		strings.TrimSpace(c.CollectionID) != ""
}

type Client struct {
	baseURL       string
	username      string
	password      string
	version       string
	environmentID string
	collectionID  string
	httpClient    *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if !cfg.Configured() {
		return nil, errors.New("discovery credentials, environment id and collection id are required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid discovery base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:       baseURL,
		username:      strings.TrimSpace(cfg.Username),
		password:      strings.TrimSpace(cfg.Password),
		version:       cfg.Version,
		environmentID: strings.TrimSpace(cfg.EnvironmentID),
		collectionID:  strings.TrimSpace(cfg.CollectionID),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// Query runs a natural-language query against the configured collection,
// capped to count results.
func (c *Client) Query(ctx context.Context, text string, count int) (contractx.QueryResult, error) {
	params := url.Values{}
	params.Set("version", c.version)
	params.Set("query", text)
	params.Set("count", strconv.Itoa(count))

	endpoint := fmt.Sprintf("%s/v1/environments/%s/collections/%s/query?%s",
		c.baseURL,
		url.PathEscape(c.environmentID),
		url.PathEscape(c.collectionID),
		params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return contractx.QueryResult{}, fmt.Errorf("build query request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return contractx.QueryResult{}, fmt.Errorf("execute query: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return contractx.QueryResult{}, fmt.Errorf("read query response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return contractx.QueryResult{}, fmt.Errorf("query http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var result contractx.QueryResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return contractx.QueryResult{}, fmt.Errorf("decode query response: %w", err)
	}
	return result, nil
}
