// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package auth

import (
	"time"

	"github.com/pkg/errors"

	"github.com/larkkit/lark-sdk-go/cache"
	"github.com/larkkit/lark-sdk-go/lark"
	"github.com/larkkit/lark-sdk-go/metrics"
	"github.com/larkkit/lark-sdk-go/transport"
	"github.com/larkkit/lark-sdk-go/utils"
)

var (
	ErrNoTenantKey = errors.New("tenant key is required to get a marketplace app's tenant access token")
	ErrNoAppTicket = errors.New("app ticket is not available yet")
	ErrEmptyToken  = errors.New("platform returned an empty token")
)

// Metric kinds.
const (
	kindAppTicketResend   = "app_ticket_resend"
	kindTenantTokenCustom = "tenant_access_token_internal"
	kindAppAccessToken    = "app_access_token"
	kindTenantTokenMarket = "tenant_access_token"
)

// Options are the dependencies shared by the ticket and token managers.
type Options struct {
	App     lark.App
	Cache   cache.Cache
	HTTP    transport.Doer
	Log     utils.Logger
	Metrics *metrics.Metrics

	// Now replaces the clock used to compute expiry times.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	o.App = o.App.WithDefaults()
	if o.Cache == nil {
		o.Cache = cache.NewMemoryCache()
	}
	if o.Log == nil {
		o.Log = utils.NewNopLogger()
	}
	if o.HTTP == nil {
		o.HTTP = transport.NewHTTPClient(transport.Options{Log: o.Log})
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
