// Package slack is a thin Slack client covering what the bot needs: the
// RTM event stream plus the users.info, users.list and chat.postMessage
// Web API calls.
package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/storebot/bot/contract"
)

const (
	defaultBaseURL       = "https://slack.com/api"
	maxResponseSizeBytes = 2 << 20
	eventBufferSize      = 128
)

type Config struct {
	BotToken string        `envconfig:"BOT_TOKEN" split_words:"true" required:"true"`
	BotUser  string        `envconfig:"BOT_USER" split_words:"true"`
	BotID    string        `envconfig:"BOT_ID" split_words:"true"`
	BaseURL  string        `envconfig:"BASE_URL" split_words:"true" default:"https://slack.com/api"`
	Timeout  time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Client talks to the Slack Web API over HTTP and, once Connect has run,
// receives RTM events over a websocket. Events are buffered internally so
// Read never blocks the caller's poll loop.
type Client struct {
	baseURL    string
	token      string
	botID      string
	httpClient *http.Client

	conn   *websocket.Conn
	events chan json.RawMessage
}

func NewClient(cfg Config) (*Client, error) {
	token := strings.TrimSpace(cfg.BotToken)
	if token == "" {
		return nil, errors.New("slack bot token is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid slack base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		token:   token,
		botID:   strings.TrimSpace(cfg.BotID),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		events: make(chan json.RawMessage, eventBufferSize),
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// BotID returns the bot's own user ID: from config when set, else from
// the rtm.connect self id once Connect has run.
func (c *Client) BotID() string {
	return c.botID
}

type rtmConnectResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	URL   string `json:"url"`
	Self  struct {
		ID string `json:"id"`
	} `json:"self"`
}

// Connect opens the RTM websocket and starts the internal reader. The
// reader only feeds the event buffer; the bot's single-threaded loop
// drains it via Read. Connecting an already connected client is a no-op,
// so callers that connect early for the self id can share the stream
// with the run loop.
func (c *Client) Connect(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	var resp rtmConnectResponse
	if err := c.apiCall(ctx, "rtm.connect", nil, &resp); err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrConnect, err)
	}
	if !resp.OK {
		return fmt.Errorf("%w: %s", contractx.ErrConnect, resp.Error)
	}
	if c.botID == "" {
		c.botID = resp.Self.ID
	}

	conn, _, err := websocket.Dial(ctx, resp.URL, nil)
	if err != nil {
		return fmt.Errorf("%w: dial rtm socket: %v", contractx.ErrConnect, err)
	}
	conn.SetReadLimit(maxResponseSizeBytes)
	c.conn = conn

	go c.readLoop()
	return nil
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.Read(context.Background())
		if err != nil {
			log.Warn().Err(err).Msg("slack rtm socket closed")
			close(c.events)
			return
		}
		select {
		case c.events <- data:
		default:
			log.Warn().Msg("slack event buffer full, dropping event")
		}
	}
}

type rtmEvent struct {
	Type        string          `json:"type"`
	Text        string          `json:"text"`
	Channel     string          `json:"channel"`
	User        string          `json:"user"`
	UserProfile json.RawMessage `json:"user_profile"`
}

// Read drains whatever RTM events have arrived since the last call. It
// never blocks; an empty slice means nothing happened.
func (c *Client) Read(ctx context.Context) ([]contractx.Event, error) {
	var events []contractx.Event
	for {
		select {
		case <-ctx.Done():
			return events, ctx.Err()
		case data, ok := <-c.events:
			if !ok {
				return events, fmt.Errorf("%w: rtm stream ended", contractx.ErrConnect)
			}
			var ev rtmEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				log.Debug().Err(err).Msg("skipping undecodable rtm event")
				continue
			}
			if ev.Type != "message" {
				continue
			}
			events = append(events, contractx.Event{
				Text:       ev.Text,
				Channel:    ev.Channel,
				UserID:     ev.User,
				HasProfile: len(ev.UserProfile) > 0,
			})
		default:
			return events, nil
		}
	}
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (c *Client) Send(ctx context.Context, channel, text string) error {
	params := url.Values{}
	params.Set("channel", channel)
	params.Set("text", text)
	params.Set("as_user", "true")

	var resp postMessageResponse
	if err := c.apiCall(ctx, "chat.postMessage", params, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("chat.postMessage: %s", resp.Error)
	}
	return nil
}

type userInfoResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	User  struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Profile struct {
			Email     string `json:"email"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		} `json:"profile"`
	} `json:"user"`
}

func (c *Client) LookupProfile(ctx context.Context, userID string) (contractx.Profile, error) {
	params := url.Values{}
	params.Set("user", userID)

	var resp userInfoResponse
	if err := c.apiCall(ctx, "users.info", params, &resp); err != nil {
		return contractx.Profile{}, fmt.Errorf("%w: %v", contractx.ErrProfileLookup, err)
	}
	if !resp.OK {
		return contractx.Profile{}, fmt.Errorf("%w: %s", contractx.ErrProfileLookup, resp.Error)
	}
	return contractx.Profile{
		Email:     resp.User.Profile.Email,
		FirstName: resp.User.Profile.FirstName,
		LastName:  resp.User.Profile.LastName,
	}, nil
}

type userListResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Members []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"members"`
}

// LookupUserID resolves a user name to its ID via users.list. Used at
// startup when SLACK_BOT_ID is not configured.
func (c *Client) LookupUserID(ctx context.Context, name string) (string, error) {
	var resp userListResponse
	if err := c.apiCall(ctx, "users.list", nil, &resp); err != nil {
		return "", err
	}
	if !resp.OK {
		return "", fmt.Errorf("users.list: %s", resp.Error)
	}
	for _, member := range resp.Members {
		if member.Name == name {
			return member.ID, nil
		}
	}
	return "", fmt.Errorf("no slack user named %q", name)
}

func (c *Client) apiCall(ctx context.Context, method string, params url.Values, dest any) error {
	if params == nil {
		params = url.Values{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/"+method, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s http status=%d body=%s", method, resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}
