// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/larkkit/lark-sdk-go/auth"
	"github.com/larkkit/lark-sdk-go/cache"
	"github.com/larkkit/lark-sdk-go/lark"
	"github.com/larkkit/lark-sdk-go/metrics"
	"github.com/larkkit/lark-sdk-go/transport"
	"github.com/larkkit/lark-sdk-go/utils"
	"github.com/larkkit/lark-sdk-go/utils/httputils"
)

// APIError is returned for a non-2xx status or a response with a non-zero
// code.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       int    `json:"code"`
	Msg        string `json:"msg"`
	LogID      string `json:"log_id,omitempty"`
}

func (e *APIError) Error() string {
	s := fmt.Sprintf("lark API error: status %d, code %d", e.StatusCode, e.Code)
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.LogID != "" {
		s += " (log id " + e.LogID + ")"
	}
	return s
}

// Response is the envelope of every platform API response.
type Response struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client is the generic entry point for platform API calls. Endpoint-specific
// wrappers build on Request and Paginate.
type Client struct {
	app     lark.App
	http    transport.Doer
	cache   cache.Cache
	log     utils.Logger
	metrics *metrics.Metrics

	tickets   *auth.TicketManager
	tokens    *auth.TokenManager
	formatter *Formatter

	pageErrorPolicy PageErrorPolicy
}

type Option func(*Client)

// WithCache shares a token cache, e.g. between processes via Redis.
func WithCache(c cache.Cache) Option {
	return func(cl *Client) { cl.cache = c }
}

func WithLogger(log utils.Logger) Option {
	return func(cl *Client) { cl.log = log }
}

func WithHTTPClient(doer transport.Doer) Option {
	return func(cl *Client) { cl.http = doer }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) { cl.metrics = m }
}

func WithDisableTokenCache() Option {
	return func(cl *Client) { cl.formatter.DisableTokenCache = true }
}

func WithStrictAuth() Option {
	return func(cl *Client) { cl.formatter.StrictAuth = true }
}

func WithPageErrorPolicy(policy PageErrorPolicy) Option {
	return func(cl *Client) { cl.pageErrorPolicy = policy }
}

func New(app lark.App, opts ...Option) (*Client, error) {
	app = app.WithDefaults()
	if err := app.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		app:       app,
		formatter: &Formatter{App: app},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = utils.NewNopLogger()
	}
	if c.cache == nil {
		c.cache = cache.NewMemoryCache()
	}
	if c.http == nil {
		c.http = transport.NewHTTPClient(transport.Options{Log: c.log})
	}

	authOpts := auth.Options{
		App:     app,
		Cache:   c.cache,
		HTTP:    c.http,
		Log:     c.log,
		Metrics: c.metrics,
	}
	if app.IsISV() {
		c.tickets = auth.NewTicketManager(context.Background(), authOpts)
	}
	c.tokens = auth.NewTokenManager(authOpts, c.tickets)
	c.formatter.Tokens = c.tokens
	c.formatter.Log = c.log
	return c, nil
}

func (c *Client) App() lark.App                { return c.app }
func (c *Client) Cache() cache.Cache           { return c.cache }
func (c *Client) Tokens() *auth.TokenManager   { return c.tokens }
func (c *Client) Tickets() *auth.TicketManager { return c.tickets }
func (c *Client) Formatter() *Formatter        { return c.formatter }

// Request performs one API call and decodes the response envelope into out,
// which may be nil.
func (c *Client) Request(ctx context.Context, method, urlTemplate string, payload Payload, out interface{}, opts ...RequestOption) error {
	resp, err := c.do(ctx, method, urlTemplate, payload, opts)
	if err != nil {
		return err
	}
	body, err := httputils.ReadAndClose(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "%s %s: failed to read response", method, urlTemplate)
	}

	envelope := Response{}
	if err = json.Unmarshal(body, &envelope); err != nil {
		return errors.Wrapf(err, "%s %s: failed to decode response", method, urlTemplate)
	}
	if envelope.Code != 0 {
		return c.apiError(method, urlTemplate, resp, envelope)
	}
	if out == nil {
		return nil
	}
	if err = json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "%s %s: failed to decode response", method, urlTemplate)
	}
	return nil
}

// Download performs a call that returns a file. The caller must close the
// returned stream.
func (c *Client) Download(ctx context.Context, method, urlTemplate string, payload Payload, opts ...RequestOption) (io.ReadCloser, error) {
	resp, err := c.do(ctx, method, urlTemplate, payload, opts)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		return resp.Body, nil
	}

	// Errors come back as JSON with a 200.
	body, err := httputils.ReadAndClose(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s: failed to read response", method, urlTemplate)
	}
	envelope := Response{}
	if json.Unmarshal(body, &envelope) == nil && envelope.Code != 0 {
		return nil, c.apiError(method, urlTemplate, resp, envelope)
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (c *Client) do(ctx context.Context, method, urlTemplate string, payload Payload, opts []RequestOption) (*http.Response, error) {
	p, err := c.formatter.Format(ctx, payload, NewRequestOptions(opts...))
	if err != nil {
		return nil, err
	}
	path, err := fillPath(urlTemplate, p.Path)
	if err != nil {
		return nil, err
	}
	u := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		u = c.app.Domain.URL(path)
	}
	if q := encodeQuery(p.Params); q != "" {
		if strings.Contains(u, "?") {
			u += "&" + q
		} else {
			u += "?" + q
		}
	}

	var body io.Reader
	if p.Data != nil {
		data, err := json.Marshal(p.Data)
		if err != nil {
			return nil, errors.Wrapf(err, "%s %s: failed to encode request", method, urlTemplate)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s: failed to create request", method, urlTemplate)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.WithError(err).Errorw("request failed", "method", method, "url", urlTemplate)
		return nil, errors.Wrapf(err, "%s %s", method, urlTemplate)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		data, _ := httputils.ReadAndClose(resp.Body)
		envelope := Response{}
		_ = json.Unmarshal(data, &envelope)
		if envelope.Msg == "" {
			envelope.Msg = utils.FirstN(strings.TrimSpace(string(data)), 256)
		}
		return nil, c.apiError(method, urlTemplate, resp, envelope)
	}
	return resp, nil
}

func (c *Client) apiError(method, urlTemplate string, resp *http.Response, envelope Response) error {
	err := &APIError{
		StatusCode: resp.StatusCode,
		Code:       envelope.Code,
		Msg:        envelope.Msg,
		LogID:      resp.Header.Get(lark.HeaderLogID),
	}
	c.log.Errorw("API call failed",
		"method", method,
		"url", urlTemplate,
		"status", err.StatusCode,
		"code", err.Code,
		"msg", err.Msg,
		"log_id", err.LogID)
	return err
}

// fillPath replaces ":name" segments of the template.
func fillPath(urlTemplate string, values map[string]string) (string, error) {
	if !strings.Contains(urlTemplate, ":") {
		return urlTemplate, nil
	}
	prefix := ""
	rest := urlTemplate
	if i := strings.Index(rest, "://"); i >= 0 {
		j := strings.Index(rest[i+3:], "/")
		if j < 0 {
			return urlTemplate, nil
		}
		prefix, rest = rest[:i+3+j], rest[i+3+j:]
	}

	segments := strings.Split(rest, "/")
	for i, s := range segments {
		if !strings.HasPrefix(s, ":") || len(s) == 1 {
			continue
		}
		name := s[1:]
		v, ok := values[name]
		if !ok || v == "" {
			return "", utils.NewInvalidError("missing path parameter %q for %s", name, urlTemplate)
		}
		segments[i] = url.PathEscape(v)
	}
	return prefix + strings.Join(segments, "/"), nil
}

func encodeQuery(params map[string]interface{}) string {
	if len(params) == 0 {
		return ""
	}
	values := url.Values{}
	for k, v := range params {
		switch vv := v.(type) {
		case nil:
		case string:
			values.Add(k, vv)
		case []string:
			for _, s := range vv {
				values.Add(k, s)
			}
		case []interface{}:
			for _, s := range vv {
				values.Add(k, fmt.Sprint(s))
			}
		default:
			values.Add(k, fmt.Sprint(vv))
		}
	}
	return values.Encode()
}
