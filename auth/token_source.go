// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package auth

import (
	"context"

	"golang.org/x/oauth2"
)

type tokenSource struct {
	ctx       context.Context
	m         *TokenManager
	tenantKey string
}

// TokenSource exposes the manager as an oauth2.TokenSource, so that an
// oauth2.Transport can authorize arbitrary requests with tenant access tokens.
// The returned tokens carry no expiry: the manager already caches and
// refreshes them, so the source must not be wrapped in a reusing cache.
func (m *TokenManager) TokenSource(ctx context.Context, tenantKey string) oauth2.TokenSource {
	return &tokenSource{
		ctx:       ctx,
		m:         m,
		tenantKey: tenantKey,
	}
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	token, err := s.m.TenantAccessToken(s.ctx, s.tenantKey)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}, nil
}
