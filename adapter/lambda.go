// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package adapter

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/larkkit/lark-sdk-go/dispatch"
	"github.com/larkkit/lark-sdk-go/utils"
	"github.com/larkkit/lark-sdk-go/utils/httputils"
)

// LambdaHandler is an AWS Lambda handler for API Gateway proxy requests; pass
// it to lambda.Start.
type LambdaHandler func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// Lambda returns a Lambda handler for d. Errors are reported through the
// response status, never as a Lambda invocation error.
func Lambda(d dispatch.Dispatcher, opts Options) LambdaHandler {
	opts = opts.withDefaults()
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		headers := lambdaHeaders(req)
		id := requestID(headers)
		log := opts.Log.With("request_id", id, "path", req.Path)

		var resp response
		body, err := lambdaBody(req)
		if err != nil {
			log.WithError(err).Warnw("failed to read request body")
			resp = errorResponse(err)
		} else {
			resp = serve(ctx, d, opts, dispatch.Request{Headers: headers, Body: body}, log)
		}

		out := events.APIGatewayProxyResponse{
			StatusCode: resp.status,
			Headers:    map[string]string{HeaderRequestID: id},
			Body:       string(resp.body),
		}
		if resp.contentType != "" {
			out.Headers["Content-Type"] = resp.contentType
		}
		return out, nil
	}
}

func lambdaHeaders(req events.APIGatewayProxyRequest) http.Header {
	h := http.Header{}
	for k, vv := range req.MultiValueHeaders {
		for _, v := range vv {
			h.Add(k, v)
		}
	}
	for k, v := range req.Headers {
		if h.Get(k) == "" {
			h.Set(k, v)
		}
	}
	return h
}

func lambdaBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	var body []byte
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return nil, utils.NewInvalidError("failed to decode base64 body: %v", err)
		}
		body = decoded
	} else {
		body = []byte(req.Body)
	}
	if len(body) > httputils.InLimit {
		return nil, utils.NewInvalidError("request body exceeds %d bytes", httputils.InLimit)
	}
	return body, nil
}
