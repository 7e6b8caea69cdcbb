// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package transport

import (
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	"github.com/larkkit/lark-sdk-go/utils"
)

// Doer executes HTTP requests. *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	DefaultTimeout = 30 * time.Second

	// HTTP/2 connection health checks; a dead connection is detected after
	// ReadIdleTimeout+PingTimeout instead of hanging until the request timeout.
	http2ReadIdleTimeout = 30 * time.Second
	http2PingTimeout     = 10 * time.Second
)

type Options struct {
	// Timeout bounds every request end to end, including reading the body.
	// Defaults to DefaultTimeout; negative disables it.
	Timeout time.Duration

	// RateLimit caps outbound requests per second; zero means unlimited.
	RateLimit float64
	Burst     int

	// Tracing wraps the transport with OpenTelemetry instrumentation, using
	// the globally registered tracer provider.
	Tracing bool

	// Base replaces the default network transport, e.g. in tests.
	Base http.RoundTripper

	Log utils.Logger
}

// NewHTTPClient builds the client used for all outbound platform calls.
func NewHTTPClient(opts Options) *http.Client {
	log := opts.Log
	if log == nil {
		log = utils.NewNopLogger()
	}

	rt := opts.Base
	if rt == nil {
		rt = newNetTransport(log)
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		rt = &rateLimitedTransport{
			next:    rt,
			limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), burst),
		}
	}
	rt = &loggingTransport{next: rt, log: log}
	if opts.Tracing {
		rt = otelhttp.NewTransport(rt)
	}

	timeout := opts.Timeout
	switch {
	case timeout == 0:
		timeout = DefaultTimeout
	case timeout < 0:
		timeout = 0
	}
	return &http.Client{
		Transport: rt,
		Timeout:   timeout,
	}
}

func newNetTransport(log utils.Logger) *http.Transport {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	h2, err := http2.ConfigureTransports(tr)
	if err != nil {
		log.WithError(err).Warnw("failed to configure HTTP/2, using HTTP/1.1")
		return tr
	}
	h2.ReadIdleTimeout = http2ReadIdleTimeout
	h2.PingTimeout = http2PingTimeout
	return tr
}
