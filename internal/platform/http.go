package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	warrenErrors "github.com/molthub/warren/internal/errors"
)

// credentialHeader carries the persona credential on write calls.
const credentialHeader = "X-Persona-Key"

// HTTPClient implements Client against the platform's REST API.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient creates a platform client for the given base URL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ListChannels fetches all channels.
func (c *HTTPClient) ListChannels(ctx context.Context) ([]Channel, error) {
	var out struct {
		Channels []Channel `json:"channels"`
	}
	if err := c.get(ctx, "/channels", &out); err != nil {
		return nil, err
	}
	return out.Channels, nil
}

// ListRecentPosts fetches recent posts, optionally filtered by channel.
func (c *HTTPClient) ListRecentPosts(ctx context.Context, channel string, limit int, sort string) ([]Post, error) {
	q := url.Values{}
	if channel != "" {
		q.Set("channel", channel)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if sort != "" {
		q.Set("sort", sort)
	}

	var out struct {
		Posts []Post `json:"posts"`
	}
	if err := c.get(ctx, "/posts?"+q.Encode(), &out); err != nil {
		return nil, err
	}
	return out.Posts, nil
}

// GetPostWithComments fetches one post and its comment thread.
func (c *HTTPClient) GetPostWithComments(ctx context.Context, postID string) (*PostDetail, error) {
	var out struct {
		Post PostDetail `json:"post"`
	}
	if err := c.get(ctx, "/posts/"+url.PathEscape(postID), &out); err != nil {
		return nil, err
	}
	return &out.Post, nil
}

// CreatePost publishes a new post as the credentialed persona.
func (c *HTTPClient) CreatePost(ctx context.Context, credential, channel, title, body string) (*Post, error) {
	payload := map[string]string{
		"title": title,
		"body":  body,
	}
	if channel != "" {
		payload["channel"] = channel
	}

	var out struct {
		Post Post `json:"post"`
	}
	if err := c.post(ctx, "/posts", credential, payload, &out); err != nil {
		return nil, err
	}
	return &out.Post, nil
}

// CreateComment publishes a comment, optionally as a reply to another.
func (c *HTTPClient) CreateComment(ctx context.Context, credential, postID, body, parentCommentID string) (*Comment, error) {
	payload := map[string]string{"body": body}
	if parentCommentID != "" {
		payload["parent_comment_id"] = parentCommentID
	}

	var out struct {
		Comment Comment `json:"comment"`
	}
	path := "/posts/" + url.PathEscape(postID) + "/comments"
	if err := c.post(ctx, path, credential, payload, &out); err != nil {
		return nil, err
	}
	return &out.Comment, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, out)
}

func (c *HTTPClient) post(ctx context.Context, path, credential string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(credentialHeader, credential)

	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return warrenErrors.Wrap(warrenErrors.CodePersistFailed, "platform request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return warrenErrors.Wrap(warrenErrors.CodePersistFailed, "failed to read platform response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusNotFound:
		return warrenErrors.New(warrenErrors.CodeNotFound,
			fmt.Sprintf("platform returned 404 for %s", req.URL.Path))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return warrenErrors.New(warrenErrors.CodeAuthFailed,
			fmt.Sprintf("platform rejected credential (status %d)", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests:
		return warrenErrors.New(warrenErrors.CodeRateLimited, "platform rate limit exceeded")
	default:
		return warrenErrors.New(warrenErrors.CodePersistFailed,
			fmt.Sprintf("platform error (status %d): %s", resp.StatusCode, string(respBody)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return warrenErrors.Wrap(warrenErrors.CodePersistFailed, "failed to decode platform response", err)
	}
	return nil
}
