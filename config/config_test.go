// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larkkit/lark-sdk-go/lark"
	"github.com/larkkit/lark-sdk-go/utils"
)

const testYAML = `
app_id: cli_yaml
app_secret: yaml-secret
app_type: isv
domain: lark
encrypt_key: ek
request_timeout: 5s
rate_limit: 20
rate_burst: 5
`

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadFile(t *testing.T) {
	t.Setenv("LARK_APP_SECRET", "env-secret")
	conf, err := LoadFile(writeFile(t, "config.yaml", testYAML))
	require.NoError(t, err)

	assert.Equal(t, "cli_yaml", conf.AppID)
	assert.Equal(t, "env-secret", conf.AppSecret)
	assert.Equal(t, 5*time.Second, conf.RequestTimeout)
	assert.Equal(t, float64(20), conf.RateLimit)
	assert.Equal(t, DefaultListenAddr, conf.ListenAddr)
	require.NoError(t, conf.Validate())

	app, err := conf.App()
	require.NoError(t, err)
	assert.Equal(t, lark.App{
		AppID:     "cli_yaml",
		AppSecret: "env-secret",
		AppType:   lark.AppTypeISV,
		Domain:    lark.DomainLark,
	}, app)

	topts := conf.TransportOptions(nil)
	assert.Equal(t, 5*time.Second, topts.Timeout)
	assert.Equal(t, 5, topts.Burst)
}

func TestLoadFileInvalid(t *testing.T) {
	_, err := LoadFile(writeFile(t, "config.yaml", "app_id: [unclosed"))
	assert.Equal(t, utils.ErrInvalid, errors.Cause(err))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LARK_APP_ID=cli_dotenv\nLARK_APP_SECRET=s\n"), 0600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { _ = os.Chdir(wd) }()

	// Real environment variables win over .env.
	t.Setenv("LARK_APP_SECRET", "real")
	t.Setenv("LARK_STRICT_AUTH", "true")
	t.Setenv("LARK_REQUEST_TIMEOUT", "2s")
	defer os.Unsetenv("LARK_APP_ID")

	conf, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "cli_dotenv", conf.AppID)
	assert.Equal(t, "real", conf.AppSecret)
	assert.True(t, conf.StrictAuth)
	assert.Equal(t, 2*time.Second, conf.RequestTimeout)
	assert.Equal(t, DefaultLogLevel, conf.LogLevel)
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv("LARK_STRICT_AUTH", "maybe")
	t.Setenv("LARK_RATE_BURST", "many")
	_, err := LoadFile(writeFile(t, "config.yaml", testYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LARK_STRICT_AUTH")
	assert.Contains(t, err.Error(), "LARK_RATE_BURST")
}

func TestValidate(t *testing.T) {
	conf := Default()
	conf.AppType = "weird"
	conf.LogLevel = "loud"
	conf.RedisURL = "redis://localhost:6379"
	conf.DynamoDBTable = "tokens"

	err := conf.Validate()
	require.Error(t, err)
	for _, s := range []string{"unknown app type", "loud", "mutually exclusive", "aws_region"} {
		assert.Contains(t, err.Error(), s)
	}

	conf = Default()
	err = conf.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app_id must be set")
	assert.Contains(t, err.Error(), "app_secret must be set")
}

func TestLoadRemote(t *testing.T) {
	src := writeFile(t, "remote.yaml", testYAML)
	conf, err := LoadRemote(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "cli_yaml", conf.AppID)
}
