// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package auth

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/larkkit/lark-sdk-go/cache"
	lpath "github.com/larkkit/lark-sdk-go/lark/path"
)

const (
	TicketTTL = cache.AppTicketTTL

	resendTimeout = 10 * time.Second
)

// TicketManager keeps the app ticket of a marketplace app. Tickets are not
// fetched: the platform pushes them to the app's event callback, and the
// manager can only ask for one to be pushed again.
type TicketManager struct {
	Options

	resending int32
	inflight  sync.WaitGroup
}

// NewTicketManager checks the cache for a ticket and, for marketplace apps
// that have none, asks the platform to push one.
func NewTicketManager(ctx context.Context, opts Options) *TicketManager {
	m := &TicketManager{
		Options: opts.withDefaults(),
	}
	if !m.App.IsISV() {
		return m
	}
	if _, ok := m.cached(ctx); !ok {
		m.resendAsync()
	}
	return m
}

// AppTicket returns the cached ticket. When there is none it triggers a
// resend and returns ErrNoAppTicket; the ticket arrives later as an
// app_ticket event.
func (m *TicketManager) AppTicket(ctx context.Context) (string, error) {
	if ticket, ok := m.cached(ctx); ok {
		return ticket, nil
	}
	m.resendAsync()
	return "", ErrNoAppTicket
}

// Store caches a ticket delivered by the platform.
func (m *TicketManager) Store(ctx context.Context, ticket string) error {
	return cache.StoreAppTicket(ctx, m.Cache, m.App.AppID, ticket, m.Now())
}

// Resend asks the platform to push the app ticket again.
func (m *TicketManager) Resend(ctx context.Context) error {
	err := postJSON(ctx, m.HTTP, m.App.Domain, lpath.AppTicketResend,
		appCredentials{AppID: m.App.AppID, AppSecret: m.App.AppSecret},
		&codeResponse{})
	m.Metrics.ObserveTokenFetch(kindAppTicketResend, err)
	return err
}

// Wait blocks until in-flight background resends are done.
func (m *TicketManager) Wait() {
	m.inflight.Wait()
}

func (m *TicketManager) cached(ctx context.Context) (string, bool) {
	ticket, ok, err := m.Cache.Get(ctx, cache.AppTicketKey(m.App.AppID))
	if err != nil {
		m.Log.WithError(err).Warnw("failed to read app ticket from cache", "app_id", m.App.AppID)
		return "", false
	}
	return ticket, ok && ticket != ""
}

// resendAsync fires a resend request without waiting for it. At most one is
// in flight at a time.
func (m *TicketManager) resendAsync() {
	if !atomic.CompareAndSwapInt32(&m.resending, 0, 1) {
		return
	}
	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		defer atomic.StoreInt32(&m.resending, 0)

		ctx, cancel := context.WithTimeout(context.Background(), resendTimeout)
		defer cancel()
		if err := m.Resend(ctx); err != nil {
			m.Log.WithError(err).Errorw("failed to request an app ticket resend", "app_id", m.App.AppID)
			return
		}
		m.Log.Debugw("requested an app ticket resend", "app_id", m.App.AppID)
	}()
}
