// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/larkkit/lark-sdk-go/lark"
	"github.com/larkkit/lark-sdk-go/transport"
	"github.com/larkkit/lark-sdk-go/utils/httputils"
)

// ResponseError is returned when the platform answers a token request with a
// non-zero code, which it does with HTTP 200 for most credential problems.
type ResponseError struct {
	Path string
	Code int
	Msg  string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s: code %d: %s", e.Path, e.Code, e.Msg)
}

type codeResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (r codeResponse) check(path string) error {
	if r.Code != 0 {
		return &ResponseError{Path: path, Code: r.Code, Msg: r.Msg}
	}
	return nil
}

type appCredentials struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
}

type appAccessTokenRequest struct {
	AppID     string `json:"app_id"`
	AppSecret string `json:"app_secret"`
	AppTicket string `json:"app_ticket"`
}

type appAccessTokenResponse struct {
	codeResponse
	AppAccessToken string `json:"app_access_token"`
	Expire         int64  `json:"expire"`
}

type tenantAccessTokenRequest struct {
	AppAccessToken string `json:"app_access_token"`
	TenantKey      string `json:"tenant_key"`
}

type tenantAccessTokenResponse struct {
	codeResponse
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int64  `json:"expire"`
}

type checker interface {
	check(path string) error
}

func postJSON(ctx context.Context, doer transport.Doer, domain lark.Domain, path string, in interface{}, out checker) error {
	data, err := json.Marshal(in)
	if err != nil {
		return errors.Wrapf(err, "%s: failed to encode request", path)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, domain.URL(path), bytes.NewReader(data))
	if err != nil {
		return errors.Wrapf(err, "%s: failed to create request", path)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := doer.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s: request failed", path)
	}
	body, err := httputils.ReadAndClose(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "%s: failed to read response", path)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return errors.Errorf("%s: received status %v: %s", path, resp.Status, string(body))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrapf(err, "%s: failed to decode response", path)
	}
	return out.check(path)
}
