// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package transport

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/larkkit/lark-sdk-go/lark"
	"github.com/larkkit/lark-sdk-go/utils"
)

type rateLimitedTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, errors.Wrap(err, "rate limit wait")
	}
	return t.next.RoundTrip(req)
}

// loggingTransport logs a filtered diagnostic for each request: method, URL
// without the query string, status and the platform log ID. Headers and
// bodies are never logged since they carry credentials.
type loggingTransport struct {
	next http.RoundTripper
	log  utils.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)

	log := t.log.With(
		"method", req.Method,
		"url", redactURL(req),
		"elapsed", time.Since(start).String(),
	)
	switch {
	case err != nil:
		log.WithError(err).Warnw("HTTP request failed")
	case resp.StatusCode >= http.StatusBadRequest:
		log.Warnw("HTTP request returned an error status",
			"status", resp.StatusCode,
			"log_id", resp.Header.Get(lark.HeaderLogID))
	default:
		log.Debugw("HTTP request",
			"status", resp.StatusCode,
			"log_id", resp.Header.Get(lark.HeaderLogID))
	}
	return resp, err
}

func redactURL(req *http.Request) string {
	if req.URL == nil {
		return ""
	}
	u := *req.URL
	u.RawQuery = ""
	u.User = nil
	return u.String()
}
