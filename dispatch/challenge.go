// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package dispatch

import (
	"github.com/larkkit/lark-sdk-go/lark"
	"github.com/larkkit/lark-sdk-go/utils"
)

// ChallengeResponse answers a url_verification request.
type ChallengeResponse struct {
	Challenge string `json:"challenge"`
}

// Challenge recognizes a url_verification request, sent when the callback
// URL is configured in the developer console. ok is false for any other
// request, including one that cannot be decoded.
func (p *Parser) Challenge(body []byte) (resp *ChallengeResponse, ok bool, err error) {
	data, err := p.Decode(body)
	if err != nil {
		return nil, false, nil
	}
	if stringField(data, "type") != lark.EventTypeURLVerification {
		return nil, false, nil
	}

	if p.VerificationToken != "" && stringField(data, "token") != p.VerificationToken {
		p.log().Warnw("url_verification with a wrong verification token")
		return nil, true, utils.NewUnauthorizedError("verification token mismatch")
	}
	return &ChallengeResponse{Challenge: stringField(data, "challenge")}, true, nil
}
