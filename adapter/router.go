// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package adapter

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/mux"

	"github.com/larkkit/lark-sdk-go/dispatch"
)

// RegisterMux serves d at path on a gorilla/mux router, for POST only.
func RegisterMux(r *mux.Router, path string, d dispatch.Dispatcher, opts Options) *mux.Route {
	return r.Handle(path, NewHandler(d, opts)).Methods(http.MethodPost)
}

// RegisterChi serves d at path on a chi router, for POST only.
func RegisterChi(r chi.Router, path string, d dispatch.Dispatcher, opts Options) {
	r.Method(http.MethodPost, path, NewHandler(d, opts))
}
