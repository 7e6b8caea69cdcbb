// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package utils

import (
	"net/url"

	"github.com/pkg/errors"
)

// IsValidHTTPURL checks that rawURL is an absolute http or https URL with a
// host.
func IsValidHTTPURL(rawURL string) error {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return err
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Errorf("URL schema must either be %q or %q", "http", "https")
	}

	if u.Host == "" {
		return errors.New("URL must contain a host")
	}

	return nil
}
