// Copyright (c) 2019-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package lark

import (
	"strings"

	"github.com/larkkit/lark-sdk-go/utils"
)

// Domain is the base URL of the open platform. The two regional endpoints are
// predefined; any other absolute URL may be used, e.g. for a private
// deployment or a test server.
type Domain string

const (
	DomainFeishu Domain = "https://open.feishu.cn"
	DomainLark   Domain = "https://open.larksuite.com"
)

func ParseDomain(s string) (Domain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "feishu":
		return DomainFeishu, nil
	case "lark", "larksuite":
		return DomainLark, nil
	}
	d := Domain(strings.TrimSpace(s))
	if err := d.Validate(); err != nil {
		return "", err
	}
	return d, nil
}

func (d Domain) Validate() error {
	if d == "" {
		return nil
	}
	if err := utils.IsValidHTTPURL(string(d)); err != nil {
		return utils.NewInvalidError("invalid domain %q: %v", string(d), err)
	}
	return nil
}

// URL joins the domain with an API path.
func (d Domain) URL(path string) string {
	base := strings.TrimRight(string(d), "/")
	if base == "" {
		base = string(DomainFeishu)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
