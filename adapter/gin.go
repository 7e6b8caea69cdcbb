// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package adapter

import (
	"github.com/gin-gonic/gin"

	"github.com/larkkit/lark-sdk-go/dispatch"
)

// Gin returns a gin handler for d.
func Gin(d dispatch.Dispatcher, opts Options) gin.HandlerFunc {
	opts = opts.withDefaults()
	return func(c *gin.Context) {
		id := requestID(c.Request.Header)
		log := opts.Log.With("request_id", id, "path", c.Request.URL.Path)
		c.Header(HeaderRequestID, id)

		body, err := readBody(c.Request.Body)
		var resp response
		if err != nil {
			log.WithError(err).Warnw("failed to read request body")
			resp = errorResponse(err)
		} else {
			resp = serve(c.Request.Context(), d, opts, dispatch.Request{Headers: c.Request.Header, Body: body}, log)
		}

		if len(resp.body) == 0 {
			c.Status(resp.status)
			return
		}
		c.Data(resp.status, resp.contentType, resp.body)
	}
}
