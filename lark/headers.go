// Copyright (c) 2019-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package lark

// Inbound webhook headers.
const (
	HeaderRequestTimestamp = "X-Lark-Request-Timestamp"
	HeaderRequestNonce     = "X-Lark-Request-Nonce"
	HeaderSignature        = "X-Lark-Signature"
)

// Outbound request headers.
const (
	HeaderAuthorization         = "Authorization"
	HeaderHelpDeskAuthorization = "X-Lark-Helpdesk-Authorization"
	HeaderLogID                 = "X-Tt-Logid"
	BearerPrefix                = "Bearer "
)
