// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larkkit/lark-sdk-go/lark"
	lpath "github.com/larkkit/lark-sdk-go/lark/path"
	"github.com/larkkit/lark-sdk-go/utils"
)

func newTestClient(t *testing.T, api http.HandlerFunc, opts ...Option) (*Client, *int32) {
	var tokenFetches int32
	mux := http.NewServeMux()
	mux.HandleFunc(lpath.TenantAccessTokenInternal, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenFetches, 1)
		_, _ = w.Write([]byte(`{"code":0,"tenant_access_token":"t-1","expire":7200}`))
	})
	mux.HandleFunc("/", api)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	app := lark.App{AppID: "cli_test", AppSecret: "secret", Domain: lark.Domain(srv.URL)}
	opts = append([]Option{WithHTTPClient(srv.Client()), WithLogger(utils.NewTestLogger())}, opts...)
	c, err := New(app, opts...)
	require.NoError(t, err)
	return c, &tokenFetches
}

func TestRequest(t *testing.T) {
	var got *http.Request
	var gotBody map[string]interface{}
	c, tokenFetches := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"code":0,"msg":"ok","data":{"message_id":"om_1"}}`))
	})

	var out struct {
		Data struct {
			MessageID string `json:"message_id"`
		} `json:"data"`
	}
	err := c.Request(context.Background(), http.MethodPost, "/open-apis/im/v1/chats/:chat_id/messages",
		Payload{
			Params: map[string]interface{}{"receive_id_type": "chat_id"},
			Data:   map[string]interface{}{"content": "hi"},
			Path:   map[string]string{"chat_id": "oc 1"},
		}, &out)
	require.NoError(t, err)
	assert.Equal(t, "om_1", out.Data.MessageID)

	require.NotNil(t, got)
	assert.Equal(t, "/open-apis/im/v1/chats/oc%201/messages", got.URL.EscapedPath())
	assert.Equal(t, "chat_id", got.URL.Query().Get("receive_id_type"))
	assert.Equal(t, "Bearer t-1", got.Header.Get("Authorization"))
	assert.Equal(t, map[string]interface{}{"content": "hi"}, gotBody)

	require.NoError(t, c.Request(context.Background(), http.MethodGet, "/open-apis/x", Payload{}, nil))
	assert.Equal(t, int32(1), atomic.LoadInt32(tokenFetches))
}

func TestRequestMissingPathParam(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	})
	err := c.Request(context.Background(), http.MethodGet, "/open-apis/im/v1/chats/:chat_id", Payload{}, nil)
	assert.Equal(t, utils.ErrInvalid, errors.Cause(err))
}

func TestRequestErrors(t *testing.T) {
	for name, tc := range map[string]struct {
		status   int
		body     string
		expected APIError
	}{
		"non-zero code": {
			status:   http.StatusOK,
			body:     `{"code":99991663,"msg":"token invalid"}`,
			expected: APIError{StatusCode: 200, Code: 99991663, Msg: "token invalid", LogID: "log-1"},
		},
		"error status with envelope": {
			status:   http.StatusBadRequest,
			body:     `{"code":1000,"msg":"bad request"}`,
			expected: APIError{StatusCode: 400, Code: 1000, Msg: "bad request", LogID: "log-1"},
		},
		"error status without envelope": {
			status:   http.StatusBadGateway,
			body:     "upstream gone",
			expected: APIError{StatusCode: 502, Msg: "upstream gone", LogID: "log-1"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(lark.HeaderLogID, "log-1")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			err := c.Request(context.Background(), http.MethodGet, "/open-apis/x", Payload{}, nil)
			require.Error(t, err)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.expected, *apiErr)
		})
	}
}

func TestDownload(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/open-apis/im/v1/images/missing" {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_, _ = w.Write([]byte(`{"code":234001,"msg":"not found"}`))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("PNGDATA"))
	})

	rc, err := c.Download(context.Background(), http.MethodGet, "/open-apis/im/v1/images/:image_key",
		Payload{Path: map[string]string{"image_key": "img_1"}})
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "PNGDATA", string(data))

	_, err = c.Download(context.Background(), http.MethodGet, "/open-apis/im/v1/images/missing", Payload{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 234001, apiErr.Code)
}

func TestNewValidatesApp(t *testing.T) {
	_, err := New(lark.App{})
	require.Error(t, err)
}

func TestFillPath(t *testing.T) {
	out, err := fillPath("https://example.com:8443/a/:id/b", map[string]string{"id": "x/y"})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com:8443/a/x%2Fy/b", out)

	out, err = fillPath("/a/b", nil)
	require.NoError(t, err)
	assert.Equal(t, "/a/b", out)
}
