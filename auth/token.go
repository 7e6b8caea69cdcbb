// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/larkkit/lark-sdk-go/cache"
	lpath "github.com/larkkit/lark-sdk-go/lark/path"
	"github.com/larkkit/lark-sdk-go/utils"
)

// fetchTimeout bounds a token fetch shared by concurrent callers.
const fetchTimeout = 30 * time.Second

// TokenManager obtains and caches tenant access tokens. Self-built apps
// exchange their credentials directly; marketplace apps go through the app
// ticket and an app access token, per tenant.
//
// Concurrent cache misses for the same key share a single fetch.
type TokenManager struct {
	Options

	tickets *TicketManager
	group   singleflight.Group
}

// NewTokenManager creates a token manager. tickets may be nil, in which case
// a ticket manager is created for marketplace apps.
func NewTokenManager(opts Options, tickets *TicketManager) *TokenManager {
	opts = opts.withDefaults()
	if tickets == nil && opts.App.IsISV() {
		tickets = NewTicketManager(context.Background(), opts)
	}
	return &TokenManager{
		Options: opts,
		tickets: tickets,
	}
}

// TenantAccessToken returns a tenant access token for the app, choosing the
// flow by app type. tenantKey is required for marketplace apps and ignored
// for self-built ones.
func (m *TokenManager) TenantAccessToken(ctx context.Context, tenantKey string) (string, error) {
	if m.App.IsISV() {
		return m.MarketTenantAccessToken(ctx, tenantKey)
	}
	return m.CustomTenantAccessToken(ctx)
}

// CustomTenantAccessToken implements the self-built app flow.
func (m *TokenManager) CustomTenantAccessToken(ctx context.Context) (string, error) {
	key := cache.TenantAccessTokenKey(m.App.AppID)
	if token, ok := m.cached(ctx, key); ok {
		return token, nil
	}

	return m.fetch(ctx, key, func(ctx context.Context) (string, int64, error) {
		resp := tenantAccessTokenResponse{}
		err := postJSON(ctx, m.HTTP, m.App.Domain, lpath.TenantAccessTokenInternal,
			appCredentials{AppID: m.App.AppID, AppSecret: m.App.AppSecret},
			&resp)
		if err == nil && resp.TenantAccessToken == "" {
			err = ErrEmptyToken
		}
		m.Metrics.ObserveTokenFetch(kindTenantTokenCustom, err)
		if err != nil {
			return "", 0, errors.Wrap(err, "failed to get tenant access token")
		}
		return resp.TenantAccessToken, resp.Expire, nil
	})
}

// MarketTenantAccessToken implements the marketplace app flow for one tenant.
func (m *TokenManager) MarketTenantAccessToken(ctx context.Context, tenantKey string) (string, error) {
	if tenantKey == "" {
		m.Log.Errorw("a tenant key is required to get a marketplace app's tenant access token", "app_id", m.App.AppID)
		return "", ErrNoTenantKey
	}

	key := cache.MarketTenantAccessTokenKey(m.App.AppID, tenantKey)
	if token, ok := m.cached(ctx, key); ok {
		return token, nil
	}

	return m.fetch(ctx, key, func(ctx context.Context) (string, int64, error) {
		if m.tickets == nil {
			return "", 0, ErrNoAppTicket
		}
		ticket, err := m.tickets.AppTicket(ctx)
		if err != nil {
			m.Log.WithError(err).Warnw("no app ticket, cannot get a tenant access token", "app_id", m.App.AppID, "tenant_key", tenantKey)
			return "", 0, err
		}

		appToken, err := m.appAccessToken(ctx, ticket)
		if err != nil {
			return "", 0, err
		}

		resp := tenantAccessTokenResponse{}
		err = postJSON(ctx, m.HTTP, m.App.Domain, lpath.TenantAccessToken,
			tenantAccessTokenRequest{AppAccessToken: appToken, TenantKey: tenantKey},
			&resp)
		if err == nil && resp.TenantAccessToken == "" {
			err = ErrEmptyToken
		}
		m.Metrics.ObserveTokenFetch(kindTenantTokenMarket, err)
		if err != nil {
			return "", 0, errors.Wrapf(err, "failed to get tenant access token for tenant %s", tenantKey)
		}
		return resp.TenantAccessToken, resp.Expire, nil
	})
}

func (m *TokenManager) appAccessToken(ctx context.Context, ticket string) (string, error) {
	resp := appAccessTokenResponse{}
	err := postJSON(ctx, m.HTTP, m.App.Domain, lpath.AppAccessToken,
		appAccessTokenRequest{AppID: m.App.AppID, AppSecret: m.App.AppSecret, AppTicket: ticket},
		&resp)
	if err == nil && resp.AppAccessToken == "" {
		err = ErrEmptyToken
	}
	m.Metrics.ObserveTokenFetch(kindAppAccessToken, err)
	if err != nil {
		return "", errors.Wrap(err, "failed to get app access token")
	}
	return resp.AppAccessToken, nil
}

// Tickets returns the ticket manager, nil for self-built apps.
func (m *TokenManager) Tickets() *TicketManager {
	return m.tickets
}

func (m *TokenManager) cached(ctx context.Context, key string) (string, bool) {
	token, ok, err := m.Cache.Get(ctx, key)
	if err != nil {
		m.Log.WithError(err).Warnw("failed to read token from cache", "key", key)
		return "", false
	}
	return token, ok && token != ""
}

// fetch runs get once per key among concurrent callers and caches the token
// for the lifetime the platform reported, in seconds. The shared fetch is not
// tied to any one caller's cancellation; each caller stops waiting when its
// own ctx is done.
func (m *TokenManager) fetch(ctx context.Context, key string, get func(context.Context) (string, int64, error)) (string, error) {
	ch := m.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		token, expire, err := get(fetchCtx)
		if err != nil {
			m.Log.WithError(err).Errorw("failed to obtain token", "app_id", m.App.AppID, "key", key)
			return "", err
		}

		expiresAt := m.Now().Add(time.Duration(expire) * time.Second)
		if err := m.Cache.Set(fetchCtx, key, token, expiresAt); err != nil {
			// The token is still good for this call.
			m.Log.WithError(err).Warnw("failed to cache token", "key", key)
		}
		m.Log.Debugw("obtained token", "key", key, "token", utils.LastN(token, 4), "expires_at", expiresAt)
		return token, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", errors.Wrapf(ctx.Err(), "gave up waiting for token %s", key)
	}
}
