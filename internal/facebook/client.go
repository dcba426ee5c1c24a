// Package facebook fetches recent posts from a page's Graph API feed.
package facebook

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

	"github.com/dioftwx-beep/fb-discord-watcher/internal/privacy"
)

const (
	// DefaultBaseURL is the Graph API endpoint used unless overridden.
	DefaultBaseURL = "https://graph.facebook.com/v19.0"

	// DefaultLimit is the feed window size when none is configured.
	DefaultLimit = 5

	fetchTimeout = 30 * time.Second
	postFields   = "id,message,created_time,permalink_url,full_picture,attachments{media,subattachments}"
)

// FetchError reports a failed feed request: a transport error, a
// non-success HTTP status, an unparseable body, or an API-level error
// object inside the response envelope.
type FetchError struct {
	Status int
	Body   string
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil && e.Status != 0:
		return privacy.ScrubToken(fmt.Sprintf("fetch feed: status %d: %v: %s", e.Status, e.Err, e.Body))
	case e.Err != nil:
		return privacy.ScrubToken(fmt.Sprintf("fetch feed: %v", e.Err))
	default:
		return privacy.ScrubToken(fmt.Sprintf("fetch feed: status %d: %s", e.Status, e.Body))
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Client fetches recent posts from one page's feed.
type Client struct {
	pageID      string
	accessToken string
	baseURL     string
	client      *http.Client
}

// NewClient creates a feed client for the given page. An empty baseURL
// selects DefaultBaseURL.
func NewClient(pageID, accessToken, baseURL string) (*Client, error) {
	if strings.TrimSpace(pageID) == "" {
		return nil, errors.New("facebook: page id is required")
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.New("facebook: access token is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		pageID:      pageID,
		accessToken: accessToken,
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      &http.Client{Timeout: fetchTimeout},
	}, nil
}

// RecentPosts returns up to limit posts from the page's feed in the
// API's newest-first order. A limit below 1 falls back to
// DefaultLimit. No retry; the first failure aborts.
func (c *Client) RecentPosts(ctx context.Context, limit int) ([]Post, error) {
	if limit < 1 {
		limit = DefaultLimit
	}

	q := url.Values{}
	q.Set("fields", postFields)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("access_token", c.accessToken)
	endpoint := fmt.Sprintf("%s/%s/posts?%s", c.baseURL, c.pageID, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Err: fmt.Errorf("create request: %w", err)}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var envelope feedEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &FetchError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
			Err:    fmt.Errorf("decode feed: %w", err),
		}
	}
	if envelope.Error != nil {
		return nil, &FetchError{Status: resp.StatusCode, Body: envelope.Error.serialize()}
	}

	return envelope.Data, nil
}

type feedEnvelope struct {
	Data  []Post     `json:"data"`
	Error *feedError `json:"error"`
}

type feedError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (e *feedError) serialize() string {
	b, err := json.Marshal(e)
	if err != nil {
		return e.Message
	}
	return string(b)
}
