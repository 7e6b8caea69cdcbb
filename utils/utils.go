// Copyright (c) 2019-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package utils

import (
	"fmt"
	"sort"
	"strings"
)

// LastN masks all but the last n characters of s. Used to log secrets.
func LastN(s string, n int) string {
	out := []byte(s)
	for i := range out {
		if i < len(out)-n {
			out[i] = '*'
		}
	}
	return string(out)
}

func FirstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// LogDigest returns a short representation of i suitable for logs: strings
// as-is, maps as their sorted key lists.
func LogDigest(i interface{}) string {
	if s, ok := i.(string); ok {
		return s
	}

	var keys []string
	if m, ok := i.(map[string]interface{}); ok {
		for key := range m {
			keys = append(keys, key)
		}
	}
	if m, ok := i.(map[string]string); ok {
		for key := range m {
			keys = append(keys, key)
		}
	}
	if len(keys) > 0 {
		sort.Strings(keys)
		return strings.Join(keys, ",")
	}

	return fmt.Sprintf("%v", i)
}
