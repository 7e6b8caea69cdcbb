// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package dispatch

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/pkg/errors"

	"github.com/larkkit/lark-sdk-go/lark"
	"github.com/larkkit/lark-sdk-go/metrics"
	"github.com/larkkit/lark-sdk-go/utils"
)

// Dispatcher kinds, also used as the metrics label.
const (
	KindEvent = "event"
	KindCard  = "card"
)

// Handler processes a normalized event or card action. For card actions the
// result is sent back to the platform as the response body.
type Handler func(ctx context.Context, event *lark.Event) (interface{}, error)

// Dispatcher is what the HTTP adapters serve.
type Dispatcher interface {
	Kind() string
	Parser() *Parser
	Invoke(ctx context.Context, req Request) (interface{}, error)
}

// ErrHandler wraps errors returned by handlers, and panics recovered from
// them.
var ErrHandler = errors.New("handler failed")

// LabelDefault is the metrics type label of card actions handled by the
// default handler; the action type itself comes from the payload.
const LabelDefault = "default"

// run calls h and converts its failure, including a panic, into an error.
// label is the metrics type label, always a registered type or LabelDefault.
func run(ctx context.Context, kind, label string, h Handler, event *lark.Event, log utils.Logger, m *metrics.Metrics) (out interface{}, err error) {
	log = log.With(event)
	start := time.Now()

	defer func() {
		if x := recover(); x != nil {
			log.Errorw("Recovered from a panic in a handler",
				"error", x,
				"stack", string(debug.Stack()))
			out = nil
			err = errors.Wrapf(ErrHandler, "%s handler for %q panicked: %v", kind, event.Type, x)
		}

		m.ObserveHandler(kind, label, time.Since(start))
		if err != nil {
			m.ObserveDispatch(kind, label, metrics.ResultError)
		} else {
			m.ObserveDispatch(kind, label, metrics.ResultOK)
		}
	}()

	out, err = h(ctx, event)
	if err != nil {
		log.WithError(err).Errorw("handler failed")
		return nil, errors.Wrapf(ErrHandler, "%s handler for %q: %v", kind, event.Type, err)
	}
	log.Debugw("handled")
	return out, nil
}
