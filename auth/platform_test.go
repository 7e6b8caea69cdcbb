// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/larkkit/lark-sdk-go/lark"
)

// fakePlatform serves the token endpoints and records every call.
type fakePlatform struct {
	*httptest.Server

	mu        sync.Mutex
	hits      map[string]int
	requests  map[string][]map[string]string
	responses map[string]interface{}
	release   chan struct{}
}

func newFakePlatform(t *testing.T) *fakePlatform {
	p := &fakePlatform{
		hits:     map[string]int{},
		requests: map[string][]map[string]string{},
		responses: map[string]interface{}{
			"/open-apis/auth/v3/tenant_access_token/internal": map[string]interface{}{
				"code": 0, "msg": "ok", "tenant_access_token": "t-internal", "expire": 7200,
			},
			"/open-apis/auth/v3/app_access_token": map[string]interface{}{
				"code": 0, "msg": "ok", "app_access_token": "a-market", "expire": 7200,
			},
			"/open-apis/auth/v3/tenant_access_token": map[string]interface{}{
				"code": 0, "msg": "ok", "tenant_access_token": "t-market", "expire": 7200,
			},
			"/open-apis/auth/v3/app_ticket/resend": map[string]interface{}{
				"code": 0, "msg": "ok",
			},
		},
	}
	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{}
		_ = json.NewDecoder(r.Body).Decode(&body)

		p.mu.Lock()
		p.hits[r.URL.Path]++
		p.requests[r.URL.Path] = append(p.requests[r.URL.Path], body)
		resp, ok := p.responses[r.URL.Path]
		release := p.release
		p.mu.Unlock()

		if release != nil {
			<-release
		}
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(p.Close)
	return p
}

func (p *fakePlatform) Hits(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits[path]
}

func (p *fakePlatform) Requests(path string) []map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]map[string]string{}, p.requests[path]...)
}

func (p *fakePlatform) Respond(path string, resp interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses[path] = resp
}

func (p *fakePlatform) TotalHits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, h := range p.hits {
		n += h
	}
	return n
}

func (p *fakePlatform) App(appType lark.AppType) lark.App {
	return lark.App{
		AppID:     "cli_test",
		AppSecret: "secret",
		AppType:   appType,
		Domain:    lark.Domain(p.URL),
	}
}

func requireHits(t *testing.T, p *fakePlatform, expected map[string]int) {
	t.Helper()
	for path, n := range expected {
		require.Equal(t, n, p.Hits(path), path)
	}
}
