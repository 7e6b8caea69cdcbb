// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package cache

//go:generate mockgen -destination=../mocks/mock_cache/mock_cache.go -package=mock_cache github.com/larkkit/lark-sdk-go/cache Cache

import (
	"context"
	"time"
)

// Cache stores tokens and tickets with an optional absolute expiry.
//
// Implementations must treat an entry whose expiry has passed as absent when
// it is read, regardless of whether the backing store has evicted it yet:
// tokens shared between processes through an external store are only safe if
// every reader applies the same rule.
type Cache interface {
	// Get returns the value for key, and false if there is no unexpired entry.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key. A zero expiresAt means the entry does not
	// expire.
	Set(ctx context.Context, key, value string, expiresAt time.Time) error
}

// Entry is a cached value together with its expiry; external stores persist
// it as JSON.
type Entry struct {
	Value     string `json:"value"`
	ExpiredAt int64  `json:"expired_at,omitempty"` // unix milliseconds, 0 for none
}

func NewEntry(value string, expiresAt time.Time) Entry {
	e := Entry{Value: value}
	if !expiresAt.IsZero() {
		e.ExpiredAt = expiresAt.UnixMilli()
	}
	return e
}

func (e Entry) Expired(now time.Time) bool {
	return e.ExpiredAt != 0 && now.UnixMilli() >= e.ExpiredAt
}

// AppTicketTTL is how long a pushed app ticket is kept. The platform pushes a
// new one every hour.
const AppTicketTTL = 12 * time.Hour

// StoreAppTicket caches a ticket pushed to appID, received at now.
func StoreAppTicket(ctx context.Context, c Cache, appID, ticket string, now time.Time) error {
	return c.Set(ctx, AppTicketKey(appID), ticket, now.Add(AppTicketTTL))
}

// Keys. The app ID is part of every key so that one external store can be
// shared by several apps.

func TenantAccessTokenKey(appID string) string {
	return "lark:tenant_access_token:" + appID
}

func MarketTenantAccessTokenKey(appID, tenantKey string) string {
	return "lark:tenant_access_token:" + appID + ":" + tenantKey
}

func AppTicketKey(appID string) string {
	return "lark:app_ticket:" + appID
}
