// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package client

//go:generate mockgen -destination=../mocks/mock_client/mock_client.go -package=mock_client github.com/larkkit/lark-sdk-go/client TokenProvider

import (
	"context"
	"encoding/base64"

	"github.com/larkkit/lark-sdk-go/auth"
	"github.com/larkkit/lark-sdk-go/lark"
	"github.com/larkkit/lark-sdk-go/utils"
)

// Payload is what a call sends: query parameters, headers, the JSON body and
// the values for ":name" placeholders in the URL template.
type Payload struct {
	Params  map[string]interface{} `json:"params,omitempty"`
	Headers map[string]string      `json:"headers,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Path    map[string]string      `json:"path,omitempty"`
}

// RequestOptions are the per-call overrides.
type RequestOptions struct {
	Params  map[string]interface{}
	Headers map[string]string
	Data    map[string]interface{}
	Path    map[string]string

	// TenantKey selects the tenant for marketplace apps.
	TenantKey string

	// UserAccessToken, if set, is sent instead of a tenant access token.
	UserAccessToken string

	// HelpDeskAuth adds the app's help desk credential.
	HelpDeskAuth bool
}

type RequestOption func(*RequestOptions)

func NewRequestOptions(opts ...RequestOption) RequestOptions {
	o := RequestOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithTenantKey(tenantKey string) RequestOption {
	return func(o *RequestOptions) { o.TenantKey = tenantKey }
}

func WithUserAccessToken(token string) RequestOption {
	return func(o *RequestOptions) { o.UserAccessToken = token }
}

func WithHelpDeskAuth() RequestOption {
	return func(o *RequestOptions) { o.HelpDeskAuth = true }
}

func WithHeaders(headers map[string]string) RequestOption {
	return func(o *RequestOptions) { o.Headers = mergeStrings(o.Headers, headers) }
}

func WithParams(params map[string]interface{}) RequestOption {
	return func(o *RequestOptions) { o.Params = merge(o.Params, params) }
}

func WithData(data map[string]interface{}) RequestOption {
	return func(o *RequestOptions) { o.Data = merge(o.Data, data) }
}

func WithPath(path map[string]string) RequestOption {
	return func(o *RequestOptions) { o.Path = mergeStrings(o.Path, path) }
}

// TokenProvider supplies tenant access tokens. *auth.TokenManager implements
// it.
type TokenProvider interface {
	TenantAccessToken(ctx context.Context, tenantKey string) (string, error)
}

// Formatter decorates payloads with credentials and per-call overrides.
type Formatter struct {
	App    lark.App
	Tokens TokenProvider
	Log    utils.Logger

	// DisableTokenCache turns off automatic tenant access tokens; only an
	// explicit user access token is then sent.
	DisableTokenCache bool

	// StrictAuth fails the call when no tenant access token can be obtained,
	// instead of sending it unauthenticated.
	StrictAuth bool
}

// Format returns the final payload. Neither payload nor opts are modified;
// option values win over payload values for the same key.
func (f *Formatter) Format(ctx context.Context, payload Payload, opts RequestOptions) (Payload, error) {
	log := f.Log
	if log == nil {
		log = utils.NewNopLogger()
	}
	headers := map[string]string{}

	switch {
	case opts.UserAccessToken != "":
		headers[lark.HeaderAuthorization] = lark.BearerPrefix + opts.UserAccessToken

	case !f.DisableTokenCache && f.Tokens != nil:
		token, err := f.Tokens.TenantAccessToken(ctx, opts.TenantKey)
		switch {
		case err == nil && token != "":
			headers[lark.HeaderAuthorization] = lark.BearerPrefix + token
		case f.StrictAuth:
			if err == nil {
				err = auth.ErrEmptyToken
			}
			return Payload{}, utils.NewUnauthorizedError(err)
		default:
			log.WithError(err).Warnw("no tenant access token, sending the request without one",
				"app_id", f.App.AppID, "tenant_key", opts.TenantKey)
		}
	}

	if opts.HelpDeskAuth {
		if f.App.HasHelpDesk() {
			cred := base64.StdEncoding.EncodeToString([]byte(f.App.HelpDeskID + ":" + f.App.HelpDeskToken))
			headers[lark.HeaderHelpDeskAuthorization] = cred
		} else {
			log.Warnw("help desk authorization requested but the app has no help desk credential", "app_id", f.App.AppID)
		}
	}

	return Payload{
		Params:  merge(payload.Params, opts.Params),
		Headers: mergeStrings(mergeStrings(headers, payload.Headers), opts.Headers),
		Data:    merge(payload.Data, opts.Data),
		Path:    mergeStrings(payload.Path, opts.Path),
	}, nil
}

// merge returns a new map with the keys of all maps, later ones winning. The
// result is nil if there are no keys.
func merge(maps ...map[string]interface{}) map[string]interface{} {
	var out map[string]interface{}
	for _, m := range maps {
		for k, v := range m {
			if out == nil {
				out = map[string]interface{}{}
			}
			out[k] = v
		}
	}
	return out
}

func mergeStrings(maps ...map[string]string) map[string]string {
	var out map[string]string
	for _, m := range maps {
		for k, v := range m {
			if out == nil {
				out = map[string]string{}
			}
			out[k] = v
		}
	}
	return out
}
