// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package adapter

import (
	"net/http"

	"github.com/larkkit/lark-sdk-go/dispatch"
	"github.com/larkkit/lark-sdk-go/utils/httputils"
)

type handler struct {
	d    dispatch.Dispatcher
	opts Options
}

// NewHandler returns a net/http handler for d.
func NewHandler(d dispatch.Dispatcher, opts Options) http.Handler {
	return &handler{
		d:    d,
		opts: opts.withDefaults(),
	}
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := requestID(r.Header)
	log := h.opts.Log.With("request_id", id, "path", r.URL.Path)
	w.Header().Set(HeaderRequestID, id)

	body, err := readBody(r.Body)
	if err != nil {
		log.WithError(err).Warnw("failed to read request body")
		httputils.WriteError(w, err)
		return
	}

	write(w, serve(r.Context(), h.d, h.opts, dispatch.Request{Headers: r.Header, Body: body}, log))
}

func write(w http.ResponseWriter, resp response) {
	for k, v := range resp.header() {
		w.Header()[k] = v
	}
	w.WriteHeader(resp.status)
	if len(resp.body) > 0 {
		_, _ = w.Write(resp.body)
	}
}
