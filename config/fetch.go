// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-getter"
	"github.com/pkg/errors"
)

// Fetch downloads a config file from any source go-getter understands: a
// local path, an http(s) URL, S3 ("s3::https://..."), git, etc.
func Fetch(ctx context.Context, src, dst string) error {
	pwd, err := os.Getwd()
	if err != nil {
		return errors.Wrap(err, "failed to get current working directory")
	}

	client := getter.Client{
		Mode: getter.ClientModeFile,
		Src:  src,
		Dst:  dst,
		Pwd:  pwd,
		Ctx:  ctx,
	}
	if err = client.Get(); err != nil {
		return errors.Wrapf(err, "failed to get config %s", src)
	}
	return nil
}

// LoadRemote fetches a YAML config file and loads it as LoadFile does.
func LoadRemote(ctx context.Context, src string) (*Config, error) {
	dir, err := os.MkdirTemp("", "larkconfig")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create temp directory for the config")
	}
	defer os.RemoveAll(dir)

	dst := filepath.Join(dir, "config.yaml")
	if err = Fetch(ctx, src, dst); err != nil {
		return nil, err
	}
	return LoadFile(dst)
}
