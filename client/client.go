package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/SpanishPear/talloc-cli/pkg/tallochttp"
	"github.com/SpanishPear/talloc-cli/pkg/version"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// AuthHeader carries the API token on every authenticated request.
const AuthHeader = "x-jwt-auth"

// Client talks to the talloc API. It is safe for concurrent use once
// configured.
type Client struct {
	baseURL       *url.URL
	token         string
	http          *http.Client
	customHeaders map[string]string
	logger        zerolog.Logger
	debug         bool
}

// RawResponse is an API response whose body is kept as opaque text.
type RawResponse struct {
	StatusCode int
	Body       string
	Duration   time.Duration
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

// WithCustomHeaders sets headers sent on every request. They never override
// the authentication header.
func WithCustomHeaders(headers map[string]string) ClientOption {
	return func(c *Client) {
		c.customHeaders = headers
	}
}

func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// EnableDebug logs the headers of every request and response.
func EnableDebug() ClientOption {
	return func(c *Client) {
		c.debug = true
	}
}

func NewClient(addr string, opts ...ClientOption) (*Client, error) {
	if !strings.HasPrefix(addr, "https://") && !strings.HasPrefix(addr, "http://") {
		return nil, errors.New("Address must start with https:// or http://")
	}

	baseURL, err := url.Parse(addr)
	if err != nil {
		return nil, errors.Wrap(err, "parsing URL")
	}

	c := &Client{
		baseURL: baseURL,
		http:    tallochttp.NewClient(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) SetToken(t string) {
	c.token = t
}

func (c *Client) doWithHeaders(ctx context.Context, verb, path string, headers map[string]string) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, verb, c.url(path), nil)
	if err != nil {
		return nil, errors.Wrap(err, "creating request object")
	}
	request.Header.Set("User-Agent", version.UserAgent())
	for k, v := range c.customHeaders {
		request.Header.Set(k, v)
	}
	for k, v := range headers {
		request.Header.Set(k, v)
	}

	if c.debug {
		c.logger.Debug().
			Str("method", verb).
			Str("url", request.URL.String()).
			Interface("headers", c.redact(request.Header)).
			Msg("sending request")
	}
	return c.http.Do(request)
}

// AuthenticatedDo sends an authenticated request and reads the whole body.
// The status code is reported but not interpreted.
func (c *Client) AuthenticatedDo(ctx context.Context, verb, path string, headers map[string]string) (*RawResponse, error) {
	if c.token == "" {
		return nil, ErrMissingToken
	}

	hdrs := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		hdrs[k] = v
	}
	hdrs[AuthHeader] = c.token

	start := time.Now()
	response, err := c.doWithHeaders(ctx, verb, path, hdrs)
	if err != nil {
		return nil, &TransportError{Method: verb, Path: path, Err: err}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, &TransportError{Method: verb, Path: path, Err: errors.Wrap(err, "reading response body")}
	}
	elapsed := time.Since(start)

	event := c.logger.Debug().
		Str("method", verb).
		Str("path", path).
		Int("status", response.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", elapsed)
	if c.debug {
		event = event.Interface("headers", response.Header)
	}
	event.Msg("received response")

	if !utf8.Valid(body) {
		return nil, errors.Wrapf(ErrNotText, "%s %s", verb, path)
	}

	return &RawResponse{
		StatusCode: response.StatusCode,
		Body:       string(body),
		Duration:   elapsed,
	}, nil
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.baseURL.String(), "/") + path
}

// redact hides the token, any Authorization header and the values of the
// configured custom headers.
func (c *Client) redact(h http.Header) http.Header {
	out := h.Clone()
	names := []string{AuthHeader, "Authorization"}
	for k := range c.customHeaders {
		names = append(names, k)
	}
	for _, k := range names {
		if out.Get(k) != "" {
			out.Set(k, "REDACTED")
		}
	}
	return out
}
