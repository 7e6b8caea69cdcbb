// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package client

import (
	"context"
	"encoding/json"

	"github.com/larkkit/lark-sdk-go/utils"
)

// PageErrorPolicy decides what an Iterator does when fetching a page fails.
type PageErrorPolicy int

const (
	// PageErrorStop logs the failure and ends the iteration; Err stays nil.
	PageErrorStop PageErrorPolicy = iota

	// PageErrorReturn ends the iteration and reports the failure from Err.
	PageErrorReturn
)

func (p PageErrorPolicy) String() string {
	switch p {
	case PageErrorReturn:
		return "return"
	default:
		return "stop"
	}
}

// Iterator walks a paginated endpoint one request at a time. It is not safe
// for concurrent use; each Paginate call starts from the first page.
//
//	it := c.Paginate(ctx, http.MethodGet, "/open-apis/contact/v3/users", client.Payload{})
//	for it.Next() {
//		var page UsersPage
//		if err := it.Decode(&page); err != nil { ... }
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	ctx         context.Context
	c           *Client
	method      string
	urlTemplate string
	payload     Payload
	opts        []RequestOption
	policy      PageErrorPolicy

	pageToken string
	page      json.RawMessage
	pages     int
	done      bool
	err       error
}

type pageInfo struct {
	HasMore       bool   `json:"has_more"`
	PageToken     string `json:"page_token"`
	NextPageToken string `json:"next_page_token"`
}

// Paginate returns an iterator over the "data" objects of the pages of a
// list endpoint. Nothing is fetched until Next is called.
func (c *Client) Paginate(ctx context.Context, method, urlTemplate string, payload Payload, opts ...RequestOption) *Iterator {
	return &Iterator{
		ctx:         ctx,
		c:           c,
		method:      method,
		urlTemplate: urlTemplate,
		payload:     payload,
		opts:        opts,
		policy:      c.pageErrorPolicy,
	}
}

// Next fetches the next page, and reports whether there was one.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}

	var opts []RequestOption
	opts = append(opts, it.opts...)
	if it.pageToken != "" {
		opts = append(opts, WithParams(map[string]interface{}{"page_token": it.pageToken}))
	}

	resp := Response{}
	err := it.c.Request(it.ctx, it.method, it.urlTemplate, it.payload, &resp, opts...)
	if err != nil {
		it.done = true
		it.page = nil
		it.c.log.WithError(err).Warnw("stopped paginating",
			"url", it.urlTemplate,
			"pages", it.pages,
			"policy", it.policy.String())
		if it.policy == PageErrorReturn {
			it.err = err
		}
		return false
	}

	info := pageInfo{}
	if len(resp.Data) > 0 {
		if err = json.Unmarshal(resp.Data, &info); err != nil {
			it.c.log.WithError(err).Debugw("page data carries no pagination info", "url", it.urlTemplate)
		}
	}
	token := info.PageToken
	if token == "" {
		token = info.NextPageToken
	}
	if !info.HasMore || token == "" {
		it.done = true
	}
	it.pageToken = token
	it.page = resp.Data
	it.pages++
	return true
}

// Page returns the raw "data" object of the current page.
func (it *Iterator) Page() json.RawMessage {
	return it.page
}

// Decode unmarshals the current page into v.
func (it *Iterator) Decode(v interface{}) error {
	if len(it.page) == 0 {
		return utils.NewNotFoundError("no current page")
	}
	return json.Unmarshal(it.page, v)
}

// Err returns the error that ended the iteration under PageErrorReturn.
func (it *Iterator) Err() error {
	return it.err
}
