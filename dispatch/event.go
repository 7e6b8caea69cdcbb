// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/larkkit/lark-sdk-go/cache"
	"github.com/larkkit/lark-sdk-go/lark"
	"github.com/larkkit/lark-sdk-go/metrics"
	"github.com/larkkit/lark-sdk-go/utils"
)

type EventDispatcherOptions struct {
	EncryptKey        string
	VerificationToken string

	// Cache receives app tickets pushed to marketplace apps. Share it with
	// the client so that its token manager can use them.
	Cache cache.Cache

	// AppID, if set, makes the dispatcher ignore app tickets of other apps.
	AppID string

	Log     utils.Logger
	Metrics *metrics.Metrics

	// Now replaces the clock used to compute app ticket expiry.
	Now func() time.Time
}

// EventDispatcher routes platform events to handlers by event type.
type EventDispatcher struct {
	opts   EventDispatcherOptions
	parser *Parser

	mu       sync.RWMutex
	handlers map[string]Handler
}

var _ Dispatcher = (*EventDispatcher)(nil)

// NewEventDispatcher creates a dispatcher with the app_ticket handler
// installed.
func NewEventDispatcher(opts EventDispatcherOptions) *EventDispatcher {
	if opts.Log == nil {
		opts.Log = utils.NewNopLogger()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewMemoryCache()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Log = opts.Log.With("dispatcher", KindEvent)

	d := &EventDispatcher{
		opts:     opts,
		parser:   NewParser(opts.EncryptKey, opts.VerificationToken, opts.Log),
		handlers: map[string]Handler{},
	}
	d.handlers[lark.EventTypeAppTicket] = d.storeAppTicket
	return d
}

func (d *EventDispatcher) Kind() string    { return KindEvent }
func (d *EventDispatcher) Parser() *Parser { return d.parser }

// Register adds handlers by event type. A type registered again replaces the
// earlier handler. An app_ticket handler runs after the ticket is stored.
func (d *EventDispatcher) Register(handlers map[string]Handler) *EventDispatcher {
	d.mu.Lock()
	defer d.mu.Unlock()
	for eventType, h := range handlers {
		if eventType == lark.EventTypeAppTicket {
			d.handlers[eventType] = d.afterAppTicket(h)
			continue
		}
		if _, ok := d.handlers[eventType]; ok {
			d.opts.Log.Errorw("handler already registered, replacing it", "event_type", eventType)
		}
		d.handlers[eventType] = h
	}
	return d
}

// Invoke verifies and parses req, then runs the handler for its type.
func (d *EventDispatcher) Invoke(ctx context.Context, req Request) (interface{}, error) {
	if !d.parser.CheckEvent(req) {
		d.opts.Log.Warnw("event signature mismatch")
		d.opts.Metrics.ObserveDispatch(KindEvent, "", metrics.ResultInvalid)
		return nil, utils.NewUnauthorizedError("event signature mismatch")
	}

	event, err := d.parser.Parse(req.Body)
	if err != nil {
		d.opts.Metrics.ObserveDispatch(KindEvent, "", metrics.ResultInvalid)
		return nil, err
	}

	d.mu.RLock()
	h, ok := d.handlers[event.Type]
	d.mu.RUnlock()
	if !ok {
		d.opts.Log.Warnw("no handler for event", "event_type", event.Type)
		d.opts.Metrics.ObserveDispatch(KindEvent, "", metrics.ResultNoHandler)
		return fmt.Sprintf("no %s event handle", event.Type), nil
	}

	return run(ctx, KindEvent, event.Type, h, event, d.opts.Log, d.opts.Metrics)
}

func (d *EventDispatcher) storeAppTicket(ctx context.Context, event *lark.Event) (interface{}, error) {
	appID := event.String("app_id")
	switch {
	case appID == "":
		appID = d.opts.AppID
	case d.opts.AppID != "" && appID != d.opts.AppID:
		d.opts.Log.Warnw("ignoring app ticket of another app", "app_id", appID)
		return nil, nil
	}
	ticket := event.String("app_ticket")
	if appID == "" || ticket == "" {
		return nil, utils.NewInvalidError("app_ticket event without an app ID or ticket")
	}
	if err := cache.StoreAppTicket(ctx, d.opts.Cache, appID, ticket, d.opts.Now()); err != nil {
		return nil, err
	}
	d.opts.Log.Debugw("stored app ticket", "app_id", appID, "app_ticket", utils.LastN(ticket, 4))
	return nil, nil
}

func (d *EventDispatcher) afterAppTicket(h Handler) Handler {
	return func(ctx context.Context, event *lark.Event) (interface{}, error) {
		if _, err := d.storeAppTicket(ctx, event); err != nil {
			return nil, err
		}
		return h(ctx, event)
	}
}
