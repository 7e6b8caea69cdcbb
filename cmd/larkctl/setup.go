// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package main

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/larkkit/lark-sdk-go/cache"
	"github.com/larkkit/lark-sdk-go/client"
	"github.com/larkkit/lark-sdk-go/config"
	"github.com/larkkit/lark-sdk-go/metrics"
	"github.com/larkkit/lark-sdk-go/transport"
	"github.com/larkkit/lark-sdk-go/utils"
)

func loadConfig(ctx context.Context) (*config.Config, error) {
	var conf *config.Config
	var err error
	switch {
	case configPath == "":
		conf, err = config.Load()
	case fileExists(configPath):
		conf, err = config.LoadFile(configPath)
	default:
		conf, err = config.LoadRemote(ctx, configPath)
	}
	if err != nil {
		return nil, err
	}
	if err = conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	log.Debug("loaded configuration", conf.Loggable()...)
	return conf, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// sdkLogger is the zap logger handed to the SDK; larkctl's own output goes
// through logrus.
func sdkLogger(conf *config.Config) (utils.Logger, error) {
	level, err := utils.ParseLogLevel(conf.LogLevel)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = utils.LogLevelDebug
	}
	return utils.MakeLogger(level)
}

func makeCache(ctx context.Context, conf *config.Config) (cache.Cache, error) {
	switch {
	case conf.RedisURL != "":
		rdb, err := cache.DialRedis(ctx, conf.RedisURL)
		if err != nil {
			return nil, err
		}
		log.Debug("using Redis token cache")
		return cache.NewRedisCache(rdb, ""), nil

	case conf.DynamoDBTable != "":
		log.Debug("using DynamoDB token cache", "table", conf.DynamoDBTable, "region", conf.AWSRegion)
		return cache.NewDynamoCacheForRegion(conf.AWSRegion, conf.DynamoDBTable)

	default:
		return cache.NewMemoryCache(), nil
	}
}

func makeClient(ctx context.Context, conf *config.Config, sdkLog utils.Logger, m *metrics.Metrics) (*client.Client, error) {
	app, err := conf.App()
	if err != nil {
		return nil, err
	}
	c, err := makeCache(ctx, conf)
	if err != nil {
		return nil, err
	}

	opts := []client.Option{
		client.WithCache(c),
		client.WithLogger(sdkLog),
		client.WithMetrics(m),
		client.WithHTTPClient(transport.NewHTTPClient(conf.TransportOptions(sdkLog))),
	}
	if conf.DisableTokenCache {
		opts = append(opts, client.WithDisableTokenCache())
	}
	if conf.StrictAuth {
		opts = append(opts, client.WithStrictAuth())
	}
	return client.New(app, opts...)
}
