// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveTokenFetch("tenant_access_token", nil)
	m.ObserveTokenFetch("tenant_access_token", errors.New("x"))
	m.ObserveTokenFetch("tenant_access_token", nil)
	m.ObserveDispatch("event", "im.message.receive_v1", ResultOK)
	m.ObserveHandler("event", "im.message.receive_v1", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TokenFetches.WithLabelValues("tenant_access_token", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TokenFetches.WithLabelValues("tenant_access_token", ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Dispatches.WithLabelValues("event", "im.message.receive_v1", ResultOK)))

	n, err := testutil.GatherAndCount(reg, "lark_handler_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTokenFetch("x", nil)
		m.ObserveDispatch("event", "x", ResultOK)
		m.ObserveHandler("event", "x", time.Second)
	})
}
