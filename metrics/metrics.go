// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels.
const (
	ResultOK        = "ok"
	ResultError     = "error"
	ResultInvalid   = "invalid"
	ResultNoHandler = "no_handler"
)

// Metrics is optional everywhere it is accepted; all methods are safe on a
// nil receiver.
type Metrics struct {
	// TokenFetches counts network fetches of tokens and tickets by kind and result
	TokenFetches *prometheus.CounterVec
	// Dispatches counts inbound requests by dispatcher, event type and result
	Dispatches *prometheus.CounterVec
	// HandlerDuration records handler execution time in seconds
	HandlerDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TokenFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "lark", Name: "token_fetch_total", Help: "Token and ticket fetches by kind and result."},
			[]string{"kind", "result"},
		),
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{Namespace: "lark", Name: "dispatch_total", Help: "Inbound events and card actions by dispatcher, type and result."},
			[]string{"dispatcher", "type", "result"},
		),
		HandlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Namespace: "lark", Name: "handler_duration_seconds", Help: "Handler execution time in seconds.", Buckets: prometheus.DefBuckets},
			[]string{"dispatcher", "type"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.TokenFetches, m.Dispatches, m.HandlerDuration)
	}
	return m
}

func (m *Metrics) ObserveTokenFetch(kind string, err error) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.TokenFetches.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveDispatch(dispatcher, eventType, result string) {
	if m == nil {
		return
	}
	m.Dispatches.WithLabelValues(dispatcher, eventType, result).Inc()
}

func (m *Metrics) ObserveHandler(dispatcher, eventType string, d time.Duration) {
	if m == nil {
		return
	}
	m.HandlerDuration.WithLabelValues(dispatcher, eventType).Observe(d.Seconds())
}
