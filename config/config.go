// Copyright (c) 2020-present Mattermost, Inc. All Rights Reserved.
// See License for license information.

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/larkkit/lark-sdk-go/lark"
	"github.com/larkkit/lark-sdk-go/transport"
	"github.com/larkkit/lark-sdk-go/utils"
)

const (
	DefaultListenAddr = ":8080"
	DefaultLogLevel   = "info"
)

// Config is the configuration of an app built with the SDK, and of larkctl.
//
// Config should be abbreviated as `conf`.
type Config struct {
	AppID     string `yaml:"app_id"`
	AppSecret string `yaml:"app_secret"`
	AppType   string `yaml:"app_type,omitempty"`
	Domain    string `yaml:"domain,omitempty"`

	// EncryptKey and VerificationToken are set in the developer console's
	// event subscription page.
	EncryptKey        string `yaml:"encrypt_key,omitempty"`
	VerificationToken string `yaml:"verification_token,omitempty"`

	HelpDeskID    string `yaml:"help_desk_id,omitempty"`
	HelpDeskToken string `yaml:"help_desk_token,omitempty"`

	LogLevel          string `yaml:"log_level,omitempty"`
	DisableTokenCache bool   `yaml:"disable_token_cache,omitempty"`
	StrictAuth        bool   `yaml:"strict_auth,omitempty"`

	// RedisURL or DynamoDBTable select a shared token cache; the in-memory
	// cache is used when neither is set.
	RedisURL      string `yaml:"redis_url,omitempty"`
	DynamoDBTable string `yaml:"dynamodb_table,omitempty"`
	AWSRegion     string `yaml:"aws_region,omitempty"`

	ListenAddr     string        `yaml:"listen_addr,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
	RateLimit      float64       `yaml:"rate_limit,omitempty"`
	RateBurst      int           `yaml:"rate_burst,omitempty"`
}

// Default returns a Config with every optional setting at its default.
func Default() Config {
	return Config{
		AppType:        string(lark.AppTypeSelfBuild),
		Domain:         string(lark.DomainFeishu),
		LogLevel:       DefaultLogLevel,
		ListenAddr:     DefaultListenAddr,
		RequestTimeout: transport.DefaultTimeout,
	}
}

// Load reads a .env file from the working directory, if there is one, and
// then the LARK_* environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "failed to load .env")
	}
	conf := Default()
	if err := conf.applyEnv(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// LoadFile reads a YAML config file. LARK_* environment variables override
// its values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	conf := Default()
	if err = yaml.Unmarshal(data, &conf); err != nil {
		return nil, utils.NewInvalidError("failed to parse %s: %v", path, err)
	}
	if err = conf.applyEnv(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (conf *Config) applyEnv() error {
	var result error
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				result = multierror.Append(result, utils.NewInvalidError("%s: %v", name, err))
				return
			}
			*dst = b
		}
	}

	str("LARK_APP_ID", &conf.AppID)
	str("LARK_APP_SECRET", &conf.AppSecret)
	str("LARK_APP_TYPE", &conf.AppType)
	str("LARK_DOMAIN", &conf.Domain)
	str("LARK_ENCRYPT_KEY", &conf.EncryptKey)
	str("LARK_VERIFICATION_TOKEN", &conf.VerificationToken)
	str("LARK_HELP_DESK_ID", &conf.HelpDeskID)
	str("LARK_HELP_DESK_TOKEN", &conf.HelpDeskToken)
	str("LARK_LOG_LEVEL", &conf.LogLevel)
	boolean("LARK_DISABLE_TOKEN_CACHE", &conf.DisableTokenCache)
	boolean("LARK_STRICT_AUTH", &conf.StrictAuth)
	str("LARK_REDIS_URL", &conf.RedisURL)
	str("LARK_DYNAMODB_TABLE", &conf.DynamoDBTable)
	str("LARK_AWS_REGION", &conf.AWSRegion)
	str("LARK_LISTEN_ADDR", &conf.ListenAddr)

	if v, ok := os.LookupEnv("LARK_REQUEST_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			result = multierror.Append(result, utils.NewInvalidError("LARK_REQUEST_TIMEOUT: %v", err))
		} else {
			conf.RequestTimeout = d
		}
	}
	if v, ok := os.LookupEnv("LARK_RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			result = multierror.Append(result, utils.NewInvalidError("LARK_RATE_LIMIT: %v", err))
		} else {
			conf.RateLimit = f
		}
	}
	if v, ok := os.LookupEnv("LARK_RATE_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			result = multierror.Append(result, utils.NewInvalidError("LARK_RATE_BURST: %v", err))
		} else {
			conf.RateBurst = n
		}
	}
	return result
}

// Validate reports every problem with the config at once.
func (conf Config) Validate() error {
	var result error
	if _, err := conf.App(); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := utils.ParseLogLevel(conf.LogLevel); err != nil {
		result = multierror.Append(result, err)
	}
	if conf.RedisURL != "" && conf.DynamoDBTable != "" {
		result = multierror.Append(result, utils.NewInvalidError("redis_url and dynamodb_table are mutually exclusive"))
	}
	if conf.DynamoDBTable != "" && conf.AWSRegion == "" {
		result = multierror.Append(result, utils.NewInvalidError("aws_region is required with dynamodb_table"))
	}
	if conf.RateLimit < 0 {
		result = multierror.Append(result, utils.NewInvalidError("rate_limit must not be negative"))
	}
	return result
}

// App returns the app identity described by the config.
func (conf Config) App() (lark.App, error) {
	var result error
	appType, err := lark.ParseAppType(conf.AppType)
	if err != nil {
		result = multierror.Append(result, err)
	}
	domain, err := lark.ParseDomain(conf.Domain)
	if err != nil {
		result = multierror.Append(result, err)
	}
	app := lark.App{
		AppID:         conf.AppID,
		AppSecret:     conf.AppSecret,
		AppType:       appType,
		Domain:        domain,
		HelpDeskID:    conf.HelpDeskID,
		HelpDeskToken: conf.HelpDeskToken,
	}.WithDefaults()
	if result == nil {
		if err = app.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result != nil {
		return lark.App{}, result
	}
	return app, nil
}

// TransportOptions returns the outbound HTTP settings.
func (conf Config) TransportOptions(log utils.Logger) transport.Options {
	return transport.Options{
		Timeout:   conf.RequestTimeout,
		RateLimit: conf.RateLimit,
		Burst:     conf.RateBurst,
		Log:       log,
	}
}

func (conf Config) Loggable() []interface{} {
	return []interface{}{
		"app_id", conf.AppID,
		"app_type", conf.AppType,
		"domain", conf.Domain,
		"app_secret", utils.LastN(conf.AppSecret, 4),
		"encrypt_key_set", conf.EncryptKey != "",
	}
}
