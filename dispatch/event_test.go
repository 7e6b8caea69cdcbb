// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larkkit/lark-sdk-go/cache"
	"github.com/larkkit/lark-sdk-go/lark"
	"github.com/larkkit/lark-sdk-go/metrics"
	"github.com/larkkit/lark-sdk-go/utils"
)

type spy struct {
	mu     sync.Mutex
	events []*lark.Event
	out    interface{}
	err    error
}

func (s *spy) handle(_ context.Context, event *lark.Event) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.out, s.err
}

func (s *spy) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestEventDispatcherInvoke(t *testing.T) {
	ctx := context.Background()
	s := &spy{out: "done"}
	d := NewEventDispatcher(EventDispatcherOptions{Log: utils.NewTestLogger()}).
		Register(map[string]Handler{"im.message.receive_v1": s.handle})

	out, err := d.Invoke(ctx, Request{Body: []byte(messageV2)})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	require.Equal(t, 1, s.calls())
	assert.Equal(t, "im.message.receive_v1", s.events[0].Type)
	assert.Equal(t, "tenant-from-event", s.events[0].Header().TenantKey)
}

func TestEventDispatcherNoHandler(t *testing.T) {
	d := NewEventDispatcher(EventDispatcherOptions{})
	out, err := d.Invoke(context.Background(), Request{Body: []byte(messageV1)})
	require.NoError(t, err)
	assert.Equal(t, "no message event handle", out)
}

func TestEventDispatcherSignatureMismatch(t *testing.T) {
	s := &spy{}
	d := NewEventDispatcher(EventDispatcherOptions{EncryptKey: testEncryptKey, Log: utils.NewTestLogger()}).
		Register(map[string]Handler{"im.message.receive_v1": s.handle})
	body := encryptBody(t, testEncryptKey, messageV2)

	out, err := d.Invoke(context.Background(), signedRequest("bad-signature", body))
	assert.Nil(t, out)
	assert.Equal(t, utils.ErrUnauthorized, errors.Cause(err))
	assert.Equal(t, 0, s.calls())

	out, err = d.Invoke(context.Background(), signedRequest(signEvent("1608725989", "nonce-1", testEncryptKey, body), body))
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, 1, s.calls())
}

func TestEventDispatcherUnparsable(t *testing.T) {
	d := NewEventDispatcher(EventDispatcherOptions{})
	out, err := d.Invoke(context.Background(), Request{Body: []byte("{")})
	assert.Nil(t, out)
	assert.Equal(t, utils.ErrInvalid, errors.Cause(err))
}

func TestEventDispatcherHandlerFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	d := NewEventDispatcher(EventDispatcherOptions{Log: utils.NewTestLogger(), Metrics: m}).
		Register(map[string]Handler{
			"message": func(context.Context, *lark.Event) (interface{}, error) {
				return "ignored", errors.New("boom")
			},
			"im.message.receive_v1": func(context.Context, *lark.Event) (interface{}, error) {
				panic("kaboom")
			},
		})

	out, err := d.Invoke(context.Background(), Request{Body: []byte(messageV1)})
	assert.Nil(t, out)
	assert.Equal(t, ErrHandler, errors.Cause(err))
	assert.Contains(t, err.Error(), "boom")

	out, err = d.Invoke(context.Background(), Request{Body: []byte(messageV2)})
	assert.Nil(t, out)
	assert.Equal(t, ErrHandler, errors.Cause(err))
	assert.Contains(t, err.Error(), "kaboom")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Dispatches.WithLabelValues(KindEvent, "message", metrics.ResultError)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Dispatches.WithLabelValues(KindEvent, "im.message.receive_v1", metrics.ResultError)))
}

func TestEventDispatcherRegister(t *testing.T) {
	first, second := &spy{out: 1}, &spy{out: 2}
	d := NewEventDispatcher(EventDispatcherOptions{Log: utils.NewTestLogger()})
	d.Register(map[string]Handler{"message": first.handle})
	d.Register(map[string]Handler{"message": second.handle})

	out, err := d.Invoke(context.Background(), Request{Body: []byte(messageV1)})
	require.NoError(t, err)
	assert.Equal(t, 2, out)
	assert.Equal(t, 0, first.calls())
	assert.Equal(t, 1, second.calls())
}

func TestEventDispatcherAppTicket(t *testing.T) {
	ctx := context.Background()
	body := `{"event":{"app_id":"cli_test","app_ticket":"ticket-1","type":"app_ticket"},"token":"x","ts":"1","type":"event_callback","uuid":"u"}`

	t.Run("stored under the ticket key", func(t *testing.T) {
		c := cache.NewMemoryCache()
		d := NewEventDispatcher(EventDispatcherOptions{Cache: c, AppID: "cli_test", Log: utils.NewTestLogger()})

		out, err := d.Invoke(ctx, Request{Body: []byte(body)})
		require.NoError(t, err)
		assert.Nil(t, out)

		ticket, ok, err := c.Get(ctx, cache.AppTicketKey("cli_test"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "ticket-1", ticket)
	})

	t.Run("registered handler runs after the ticket is stored", func(t *testing.T) {
		c := cache.NewMemoryCache()
		first, second := &spy{}, &spy{out: "seen"}
		d := NewEventDispatcher(EventDispatcherOptions{Cache: c, AppID: "cli_test", Log: utils.NewTestLogger()}).
			Register(map[string]Handler{lark.EventTypeAppTicket: first.handle}).
			Register(map[string]Handler{lark.EventTypeAppTicket: second.handle})

		out, err := d.Invoke(ctx, Request{Body: []byte(body)})
		require.NoError(t, err)
		assert.Equal(t, "seen", out)
		assert.Equal(t, 0, first.calls())
		require.Equal(t, 1, second.calls())
		assert.Equal(t, "ticket-1", second.events[0].String("app_ticket"))

		ticket, ok, err := c.Get(ctx, cache.AppTicketKey("cli_test"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "ticket-1", ticket)
	})

	t.Run("registered handler is skipped when the ticket cannot be stored", func(t *testing.T) {
		s := &spy{}
		d := NewEventDispatcher(EventDispatcherOptions{}).
			Register(map[string]Handler{lark.EventTypeAppTicket: s.handle})

		_, err := d.Invoke(ctx, Request{Body: []byte(`{"event":{"type":"app_ticket"}}`)})
		assert.Equal(t, ErrHandler, errors.Cause(err))
		assert.Equal(t, 0, s.calls())
	})

	t.Run("expiry follows the dispatcher clock", func(t *testing.T) {
		received := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		now := received
		c := cache.NewMemoryCache(cache.WithClock(func() time.Time { return now }))
		d := NewEventDispatcher(EventDispatcherOptions{
			Cache: c,
			Now:   func() time.Time { return received },
		})

		_, err := d.Invoke(ctx, Request{Body: []byte(body)})
		require.NoError(t, err)

		now = received.Add(cache.AppTicketTTL - time.Second)
		_, ok, err := c.Get(ctx, cache.AppTicketKey("cli_test"))
		require.NoError(t, err)
		assert.True(t, ok)

		now = received.Add(cache.AppTicketTTL)
		_, ok, err = c.Get(ctx, cache.AppTicketKey("cli_test"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("other apps are ignored", func(t *testing.T) {
		c := cache.NewMemoryCache()
		d := NewEventDispatcher(EventDispatcherOptions{Cache: c, AppID: "cli_other"})

		_, err := d.Invoke(ctx, Request{Body: []byte(body)})
		require.NoError(t, err)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("v2 envelope", func(t *testing.T) {
		c := cache.NewMemoryCache()
		d := NewEventDispatcher(EventDispatcherOptions{Cache: c})

		_, err := d.Invoke(ctx, Request{Body: []byte(`{"schema":"2.0","header":{"event_type":"app_ticket","app_id":"cli_test"},"event":{"app_id":"cli_test","app_ticket":"ticket-2"}}`)})
		require.NoError(t, err)
		ticket, ok, err := c.Get(ctx, cache.AppTicketKey("cli_test"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "ticket-2", ticket)
	})
}

func TestEventDispatcherConcurrentRegister(t *testing.T) {
	d := NewEventDispatcher(EventDispatcherOptions{})
	wg := sync.WaitGroup{}
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.Register(map[string]Handler{"message": (&spy{}).handle})
		}()
		go func() {
			defer wg.Done()
			_, err := d.Invoke(context.Background(), Request{Body: []byte(messageV1)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}
