// Package client talks to an annotation inference server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options tunes a Client. Zero values select defaults.
type Options struct {
	APIKey string
	// Timeout bounds each call, including reading the response body.
	Timeout        time.Duration
	ConnectTimeout time.Duration
	Logger         *zerolog.Logger
	// HTTPClient replaces the default transport, mostly for tests.
	HTTPClient *http.Client
}

const (
	defaultTimeout        = 60 * time.Second
	defaultConnectTimeout = 10 * time.Second
	maxErrorBody          = 4096
)

// Client issues requests against one server base URL.
type Client struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	log        zerolog.Logger
}

// New validates baseURL and builds a Client.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, newError(ErrInvalidArgs, err, "invalid server uri %q: %v", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, newError(ErrInvalidArgs, nil, "invalid server uri %q: expected http(s)://host[:port]", baseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	cli := opts.HTTPClient
	if cli == nil {
		tr := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   opts.ConnectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		// Timeout stays 0: deadlines come from the per-call context.
		cli = &http.Client{Transport: tr, Timeout: 0}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		baseURL:    strings.TrimRight(u.String(), "/"),
		apiKey:     opts.APIKey,
		timeout:    opts.Timeout,
		httpClient: cli,
		log:        logger,
	}, nil
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string { return c.baseURL }

// call performs one HTTP round trip and hands a 2xx response to handle.
// Non-2xx responses become *Error with the server's message.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, handle func(*http.Response) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return newError(ErrSystem, err, "build request: %v", err)
	}
	rid := uuid.NewString()
	req.Header.Set("X-Request-Id", rid)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Str("method", method).Str("path", path).Str("request_id", rid).Err(err).Msg("request failed")
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return newError(ErrSystem, err, "%s %s timed out after %s", method, path, c.timeout)
		}
		return newError(ErrSystem, err, "%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	c.log.Debug().Str("method", method).Str("path", path).Str("request_id", rid).
		Int("status", resp.StatusCode).Dur("dur", time.Since(start)).Msg("response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{ID: ErrServer, StatusCode: resp.StatusCode, Description: serverMessage(resp, b)}
	}
	if err := handle(resp); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return newError(ErrSystem, err, "%s %s timed out after %s", method, path, c.timeout)
		}
		return err
	}
	return nil
}

// serverMessage extracts {"error": "..."} when present, else the raw body.
func serverMessage(resp *http.Response, body []byte) string {
	var er struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &er) == nil && er.Error != "" {
		return fmt.Sprintf("%s: %s", resp.Status, er.Error)
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Sprintf("%s: %s", resp.Status, msg)
	}
	return resp.Status
}

// decodeJSON reads a JSON body into v.
func decodeJSON(resp *http.Response, v any) error {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return newError(ErrSystem, err, "read response: %v", err)
	}
	if err := json.NewDecoder(bytes.NewReader(b)).Decode(v); err != nil {
		return newError(ErrResponseParse, err, "parse response: %v", err)
	}
	return nil
}
