// Package dingtalk is a client for the DingTalk open platform contact APIs.
package dingtalk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/config"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/tools"
)

const DefaultBaseURL = "https://oapi.dingtalk.com"

// Client calls the DingTalk API with an automatically refreshed access token.
// It is safe for concurrent use.
type Client struct {
	http      *retryablehttp.Client
	baseURL   string
	appKey    string
	appSecret string
	pageSize  int
	tokens    tokenCache
	now       func() time.Time
}

type Option func(*Client)

// WithRetryWait sets the backoff bounds between retried requests.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(c *Client) {
		c.http.RetryWaitMin = minWait
		c.http.RetryWaitMax = maxWait
	}
}

// WithClock replaces time.Now for token expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(cfg config.DingTalkConfig, opts ...Option) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = cfg.RetryMax
	hc.Logger = newLeveledLogger()
	if cfg.Timeout > 0 {
		hc.HTTPClient.Timeout = cfg.Timeout
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	c := &Client{
		http:      hc,
		baseURL:   baseURL,
		appKey:    cfg.AppKey,
		appSecret: cfg.AppSecret,
		pageSize:  pageSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// status is the errcode/errmsg pair present on every response.
type status struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func (s status) err(path string) error {
	if s.ErrCode == 0 {
		return nil
	}
	return &APIError{Code: s.ErrCode, Message: s.ErrMsg, Path: path}
}

type tokenResponse struct {
	status
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type resultResponse[T any] struct {
	status
	Result T `json:"result"`
}

// GetToken returns a cached access token, fetching a new one when needed.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	return c.tokens.getOrRefresh(ctx, c.now(), c.fetchToken)
}

func (c *Client) fetchToken(ctx context.Context) (string, time.Duration, error) {
	q := url.Values{}
	q.Set("appkey", c.appKey)
	q.Set("appsecret", c.appSecret)

	var resp tokenResponse
	if err := c.do(ctx, http.MethodGet, "/gettoken", q, nil, &resp); err != nil {
		return "", 0, err
	}
	if err := resp.err("/gettoken"); err != nil {
		return "", 0, err
	}

	tools.Log.WithField("expires_in", resp.ExpiresIn).Debug("Fetched DingTalk access token")
	return resp.AccessToken, time.Duration(resp.ExpiresIn) * time.Second, nil
}

// call posts body to path with the access token and decodes result into T.
// A token rejected by the API is dropped and the call is retried once.
func call[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		token, err := c.GetToken(ctx)
		if err != nil {
			return zero, err
		}

		q := url.Values{}
		q.Set("access_token", token)

		var resp resultResponse[T]
		if err := c.do(ctx, http.MethodPost, path, q, body, &resp); err != nil {
			return zero, err
		}

		err = resp.err(path)
		if err == nil {
			return resp.Result, nil
		}
		if errors.Is(err, ErrAuthExpired) {
			c.tokens.invalidate()
			if attempt == 0 {
				tools.Log.WithError(err).Warn("DingTalk rejected access token, refreshing")
				continue
			}
		}
		return zero, err
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		payload = bytes.NewReader(b)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("dingtalk %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("dingtalk %s: unexpected status %s", path, res.Status)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
