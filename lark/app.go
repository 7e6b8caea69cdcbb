// Copyright (c) 2019-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package lark

import (
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/larkkit/lark-sdk-go/utils"
)

// AppType is the deployment model of an app, which determines how tenant
// access tokens are obtained.
type AppType string

const (
	// AppTypeSelfBuild apps are built by a tenant for its own use and exchange
	// their credentials directly for a tenant access token.
	AppTypeSelfBuild AppType = "self_build"

	// AppTypeISV apps are listed on the marketplace. They need an app ticket,
	// pushed by the platform, to obtain an app access token, and then a tenant
	// access token per installing tenant.
	AppTypeISV AppType = "isv"
)

func ParseAppType(s string) (AppType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "self_build", "selfbuild", "self-build", "custom":
		return AppTypeSelfBuild, nil
	case "isv", "marketplace", "market":
		return AppTypeISV, nil
	default:
		return "", utils.NewInvalidError("unknown app type %q", s)
	}
}

// App is the identity of an app. It does not change for the lifetime of a
// client.
type App struct {
	AppID     string  `json:"app_id" yaml:"app_id"`
	AppSecret string  `json:"app_secret" yaml:"app_secret"`
	AppType   AppType `json:"app_type,omitempty" yaml:"app_type,omitempty"`
	Domain    Domain  `json:"domain,omitempty" yaml:"domain,omitempty"`

	// HelpDeskID and HelpDeskToken are only used by help-desk endpoints.
	HelpDeskID    string `json:"help_desk_id,omitempty" yaml:"help_desk_id,omitempty"`
	HelpDeskToken string `json:"help_desk_token,omitempty" yaml:"help_desk_token,omitempty"`
}

func (a App) Validate() error {
	var result error
	if a.AppID == "" {
		result = multierror.Append(result, utils.NewInvalidError("app_id must be set"))
	}
	if a.AppSecret == "" {
		result = multierror.Append(result, utils.NewInvalidError("app_secret must be set"))
	}
	if a.AppType != AppTypeSelfBuild && a.AppType != AppTypeISV {
		result = multierror.Append(result, utils.NewInvalidError("invalid app_type %q", a.AppType))
	}
	if err := a.Domain.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}

// WithDefaults fills in a self-built app type and the Feishu domain when they
// are not set.
func (a App) WithDefaults() App {
	if a.AppType == "" {
		a.AppType = AppTypeSelfBuild
	}
	if a.Domain == "" {
		a.Domain = DomainFeishu
	}
	return a
}

func (a App) IsISV() bool {
	return a.AppType == AppTypeISV
}

func (a App) HasHelpDesk() bool {
	return a.HelpDeskID != "" && a.HelpDeskToken != ""
}

func (a App) Loggable() []interface{} {
	return []interface{}{"app_id", a.AppID, "app_type", string(a.AppType)}
}
