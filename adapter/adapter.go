// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

// Package adapter serves event and card action dispatchers from HTTP
// frameworks. Adapters only translate requests and responses; everything
// else happens in the dispatcher.
package adapter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/larkkit/lark-sdk-go/dispatch"
	"github.com/larkkit/lark-sdk-go/utils"
	"github.com/larkkit/lark-sdk-go/utils/httputils"
)

const HeaderRequestID = "X-Request-Id"

type Options struct {
	// DisableAutoChallenge turns off answering url_verification requests, in
	// which case they reach the dispatcher like any other event.
	DisableAutoChallenge bool

	// Timeout bounds the handler's context; zero means no additional limit.
	Timeout time.Duration

	Log utils.Logger
}

func (o Options) withDefaults() Options {
	if o.Log == nil {
		o.Log = utils.NewNopLogger()
	}
	return o
}

type response struct {
	status      int
	contentType string
	body        []byte
}

func (r response) header() http.Header {
	h := http.Header{}
	if r.contentType != "" {
		h.Set("Content-Type", r.contentType)
	}
	return h
}

func errorResponse(err error) response {
	return response{
		status:      httputils.ErrorToStatus(err),
		contentType: "text/plain; charset=utf-8",
		body:        []byte(err.Error()),
	}
}

func jsonResponse(v interface{}) response {
	if v == nil {
		v = struct{}{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return errorResponse(err)
	}
	return response{
		status:      http.StatusOK,
		contentType: "application/json; charset=utf-8",
		body:        data,
	}
}

// requestID returns the caller's request ID, or a new one.
func requestID(h http.Header) string {
	if id := h.Get(HeaderRequestID); id != "" {
		return id
	}
	return uuid.NewString()
}

// readBody reads at most httputils.InLimit bytes, and fails for anything
// longer rather than truncating it.
func readBody(in io.Reader) ([]byte, error) {
	data, err := httputils.LimitReadAll(in, httputils.InLimit+1)
	if err != nil {
		return nil, err
	}
	if len(data) > httputils.InLimit {
		return nil, utils.NewInvalidError("request body exceeds %d bytes", httputils.InLimit)
	}
	return data, nil
}

// serve answers a url_verification request itself, and passes anything else
// to the dispatcher. Card action results become the JSON response body;
// events get an empty 200.
func serve(ctx context.Context, d dispatch.Dispatcher, opts Options, req dispatch.Request, log utils.Logger) response {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if !opts.DisableAutoChallenge {
		challenge, ok, err := d.Parser().Challenge(req.Body)
		if ok {
			if err != nil {
				log.WithError(err).Warnw("rejected url_verification")
				return errorResponse(err)
			}
			log.Infow("answered url_verification")
			return jsonResponse(challenge)
		}
	}

	out, err := d.Invoke(ctx, req)
	if err != nil {
		log.WithError(err).Warnw("failed to dispatch", "kind", d.Kind())
		return errorResponse(err)
	}
	if d.Kind() == dispatch.KindCard {
		return jsonResponse(out)
	}
	return response{status: http.StatusOK}
}
