// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package path

// Token and ticket endpoints, relative to the app's domain.
const (
	AppTicketResend           = "/open-apis/auth/v3/app_ticket/resend"
	TenantAccessTokenInternal = "/open-apis/auth/v3/tenant_access_token/internal"
	AppAccessToken            = "/open-apis/auth/v3/app_access_token"
	TenantAccessToken         = "/open-apis/auth/v3/tenant_access_token"
)
