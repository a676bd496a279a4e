// Package watson is a client for the Watson Conversation (Assistant) v1
// API: per-turn message exchange plus the workspace list/create calls used
// at startup.
package watson

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

	contractx "github.com/tanpawarit/storebot/bot/contract"
)

const maxResponseSizeBytes = 4 << 20

type Config struct {
	Username string        `envconfig:"USERNAME" split_words:"true" required:"true"`
	Password string        `envconfig:"PASSWORD" split_words:"true" required:"true"`
	BaseURL  string        `envconfig:"BASE_URL" split_words:"true" default:"https://gateway.watsonplatform.net/conversation/api"`
	Version  string        `envconfig:"VERSION" split_words:"true" default:"2016-07-11"`
	Timeout  time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

type Client struct {
	baseURL    string
	username   string
	password   string
	version    string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Username) == "" || strings.TrimSpace(cfg.Password) == "" {
		return nil, errors.New("watson conversation credentials are required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid watson base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:  baseURL,
		username: strings.TrimSpace(cfg.Username),
		password: strings.TrimSpace(cfg.Password),
		version:  cfg.Version,
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

type messageRequest struct {
	Input   map[string]string `json:"input"`
	Context map[string]any    `json:"context,omitempty"`
}

type messageResponse struct {
	Output struct {
		Text []string `json:"text"`
	} `json:"output"`
	Context map[string]any `json:"context"`
}

// MessageTurn sends one (message, context) exchange to the workspace's
// dialogue graph. The returned context is the engine's rewrite and
// replaces the caller's copy wholesale.
func (c *Client) MessageTurn(ctx context.Context, workspaceID, text string, conversation map[string]any) (contractx.TurnResult, error) {
	body := messageRequest{
		Input:   map[string]string{"text": text},
		Context: conversation,
	}

	var resp messageResponse
	path := fmt.Sprintf("/v1/workspaces/%s/message", url.PathEscape(workspaceID))
	if err := c.call(ctx, http.MethodPost, path, body, &resp); err != nil {
		return contractx.TurnResult{}, err
	}

	return contractx.TurnResult{
		Texts:   resp.Output.Text,
		Context: resp.Context,
	}, nil
}

type workspaceListResponse struct {
	Workspaces []contractx.Workspace `json:"workspaces"`
}

func (c *Client) ListWorkspaces(ctx context.Context) ([]contractx.Workspace, error) {
	var resp workspaceListResponse
	if err := c.call(ctx, http.MethodGet, "/v1/workspaces", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Workspaces, nil
}

// CreateWorkspace provisions a workspace from a raw definition (language,
// intents, entities, dialog nodes...) as exported by the Watson tooling.
func (c *Client) CreateWorkspace(ctx context.Context, name, description string, definition map[string]any) (contractx.Workspace, error) {
	body := make(map[string]any, len(definition)+2)
	for k, v := range definition {
		body[k] = v
	}
	body["name"] = name
	body["description"] = description

	var created contractx.Workspace
	if err := c.call(ctx, http.MethodPost, "/v1/workspaces", body, &created); err != nil {
		return contractx.Workspace{}, err
	}
	return created, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + path + "?version=" + url.QueryEscape(c.version)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s http status=%d body=%s", path, resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
