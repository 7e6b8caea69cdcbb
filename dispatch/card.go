// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/larkkit/lark-sdk-go/metrics"
	"github.com/larkkit/lark-sdk-go/utils"
)

type CardActionDispatcherOptions struct {
	EncryptKey        string
	VerificationToken string

	Log     utils.Logger
	Metrics *metrics.Metrics
}

// CardActionDispatcher routes interactive card callbacks. Handlers are
// looked up by the action type; anything else goes to the default handler.
type CardActionDispatcher struct {
	opts           CardActionDispatcherOptions
	parser         *Parser
	defaultHandler Handler

	mu       sync.RWMutex
	handlers map[string]Handler
}

var _ Dispatcher = (*CardActionDispatcher)(nil)

// NewCardActionDispatcher creates a dispatcher. defaultHandler, which may be
// nil, receives every card action with no type-specific handler.
func NewCardActionDispatcher(opts CardActionDispatcherOptions, defaultHandler Handler) *CardActionDispatcher {
	if opts.Log == nil {
		opts.Log = utils.NewNopLogger()
	}
	opts.Log = opts.Log.With("dispatcher", KindCard)

	return &CardActionDispatcher{
		opts:           opts,
		parser:         NewParser(opts.EncryptKey, opts.VerificationToken, opts.Log),
		defaultHandler: defaultHandler,
		handlers:       map[string]Handler{},
	}
}

func (d *CardActionDispatcher) Kind() string    { return KindCard }
func (d *CardActionDispatcher) Parser() *Parser { return d.parser }

// Register adds handlers by action type. A type registered again replaces
// the earlier handler.
func (d *CardActionDispatcher) Register(handlers map[string]Handler) *CardActionDispatcher {
	d.mu.Lock()
	defer d.mu.Unlock()
	for actionType, h := range handlers {
		if _, ok := d.handlers[actionType]; ok {
			d.opts.Log.Errorw("handler already registered, replacing it", "action_type", actionType)
		}
		d.handlers[actionType] = h
	}
	return d
}

// Invoke verifies and parses req, then runs its handler. The result is the
// response to the platform, typically a card update.
func (d *CardActionDispatcher) Invoke(ctx context.Context, req Request) (interface{}, error) {
	if !d.parser.CheckCard(req) {
		d.opts.Log.Warnw("card action signature mismatch")
		d.opts.Metrics.ObserveDispatch(KindCard, "", metrics.ResultInvalid)
		return nil, utils.NewUnauthorizedError("card action signature mismatch")
	}

	card, err := d.parser.ParseCard(req.Body)
	if err != nil {
		d.opts.Metrics.ObserveDispatch(KindCard, "", metrics.ResultInvalid)
		return nil, err
	}

	label := card.Type
	d.mu.RLock()
	h, ok := d.handlers[card.Type]
	d.mu.RUnlock()
	if !ok {
		h, label = d.defaultHandler, LabelDefault
	}
	if h == nil {
		d.opts.Log.Warnw("no handler for card action", "action_type", card.Type)
		d.opts.Metrics.ObserveDispatch(KindCard, "", metrics.ResultNoHandler)
		return fmt.Sprintf("no %s card action handle", card.Type), nil
	}

	return run(ctx, KindCard, label, h, card, d.opts.Log, d.opts.Metrics)
}
