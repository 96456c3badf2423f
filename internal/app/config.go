package app

import (
	"os"
	"regexp"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/jeremywohl/flatten"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

const (
	AppName = "supportwatch"

	defaultBaseURL             = "https://apix.cisco.com"
	defaultTokenURL            = "https://id.cisco.com/oauth2/default/v1/token" // nolint:gosec // URL of the token endpoint, not a credential.
	defaultManufacturerPattern = "cisco"
	defaultTimeoutSeconds      = 30
	defaultCacheTimeoutSeconds = 300
	defaultListenAddress       = "0.0.0.0:8000"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

var (
	ErrConfig = errors.New("configuration error")
)

// Configuration holds application configuration read from a YAML file or
// set by env variables.
//
// nolint:govet // prefer readability over field alignment optimization for this case.
type Configuration struct {
	// LogLevel is the app verbose logging level.
	// one of - info, debug, trace
	LogLevel string `mapstructure:"log_level"`

	// ListenAddress is the address the HTTP API listens on.
	ListenAddress string `mapstructure:"listen_address"`

	// SupportAPI defines the vendor support API client configuration parameters.
	SupportAPI *SupportAPIOptions `mapstructure:"support_api"`

	// Cache defines the shared token/response cache backend.
	Cache *CacheOptions `mapstructure:"cache"`
}

// SupportAPIOptions defines configuration for the support API client.
type SupportAPIOptions struct {
	// OAuth2 client-credential pair. The secret is never logged or
	// echoed back in plaintext.
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`

	BaseURL  string `mapstructure:"base_url"`
	TokenURL string `mapstructure:"token_url"`

	// ManufacturerPattern gates lookups to devices whose manufacturer
	// matches, case-insensitively.
	ManufacturerPattern string `mapstructure:"manufacturer_pattern"`

	// TimeoutSeconds bounds each upstream HTTP call.
	TimeoutSeconds int `mapstructure:"timeout"`

	// CacheTimeoutSeconds is the TTL for cached API responses.
	CacheTimeoutSeconds int `mapstructure:"cache_timeout"`
}

// CacheOptions defines the cache backend configuration.
type CacheOptions struct {
	// Backend is one of - memory, redis
	Backend       string `mapstructure:"backend"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
}

// CredentialsConfigured indicates whether the client-credential pair is
// present. When false no upstream calls are attempted.
func (o *SupportAPIOptions) CredentialsConfigured() bool {
	return o != nil && o.ClientID != "" && o.ClientSecret != ""
}

// LoadConfiguration loads application configuration
//
// Reads in the cfgFile when available and overrides from environment variables.
func (a *App) LoadConfiguration(cfgFile string) error {
	a.v.SetConfigType("yaml")
	a.v.SetEnvPrefix(AppName)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	// these are initialized here so viper can read in configuration from env vars
	// once https://github.com/spf13/viper/pull/1429 is merged, this can go.
	a.Config.SupportAPI = &SupportAPIOptions{}
	a.Config.Cache = &CacheOptions{}

	if cfgFile != "" {
		fh, err := os.Open(cfgFile)
		if err != nil {
			return errors.Wrap(ErrConfig, err.Error())
		}

		if err = a.v.ReadConfig(fh); err != nil {
			return errors.Wrap(ErrConfig, "ReadConfig error:"+err.Error())
		}
	}

	a.v.SetDefault("log.level", "info")

	if err := a.envBindVars(); err != nil {
		return errors.Wrap(ErrConfig, "env var bind error:"+err.Error())
	}

	if err := a.v.Unmarshal(a.Config); err != nil {
		return errors.Wrap(ErrConfig, "Unmarshal error: "+err.Error())
	}

	a.envVarAppOverrides()
	a.envVarSupportAPIOverrides()
	a.envVarCacheOverrides()
	a.applyDefaults()

	if err := a.Config.validate(); err != nil {
		return err
	}

	return nil
}

func (a *App) envVarAppOverrides() {
	if a.v.GetString("log.level") != "" {
		a.Config.LogLevel = a.v.GetString("log.level")
	}

	if a.v.GetString("listen.address") != "" {
		a.Config.ListenAddress = a.v.GetString("listen.address")
	}
}

// envBindVars binds environment variables to the struct
// without a configuration file being unmarshalled,
// this is a workaround for a viper bug,
//
// This can be replaced by the solution in https://github.com/spf13/viper/pull/1429
// once that PR is merged.
func (a *App) envBindVars() error {
	envKeysMap := map[string]interface{}{}
	if err := mapstructure.Decode(a.Config, &envKeysMap); err != nil {
		return err
	}

	// Flatten nested conf map
	flat, err := flatten.Flatten(envKeysMap, "", flatten.DotStyle)
	if err != nil {
		return errors.Wrap(err, "Unable to flatten config")
	}

	for k := range flat {
		if err := a.v.BindEnv(k); err != nil {
			return errors.Wrap(ErrConfig, "env var bind error: "+err.Error())
		}
	}

	return nil
}

// Support API configuration options

func (a *App) envVarSupportAPIOverrides() {
	if a.Config.SupportAPI == nil {
		a.Config.SupportAPI = &SupportAPIOptions{}
	}

	if a.v.GetString("support.api.client.id") != "" {
		a.Config.SupportAPI.ClientID = a.v.GetString("support.api.client.id")
	}

	if a.v.GetString("support.api.client.secret") != "" {
		a.Config.SupportAPI.ClientSecret = a.v.GetString("support.api.client.secret")
	}

	if a.v.GetString("support.api.base.url") != "" {
		a.Config.SupportAPI.BaseURL = a.v.GetString("support.api.base.url")
	}

	if a.v.GetString("support.api.token.url") != "" {
		a.Config.SupportAPI.TokenURL = a.v.GetString("support.api.token.url")
	}

	if a.v.GetString("support.api.manufacturer.pattern") != "" {
		a.Config.SupportAPI.ManufacturerPattern = a.v.GetString("support.api.manufacturer.pattern")
	}

	if a.v.GetInt("support.api.timeout") != 0 {
		a.Config.SupportAPI.TimeoutSeconds = a.v.GetInt("support.api.timeout")
	}

	if a.v.GetInt("support.api.cache.timeout") != 0 {
		a.Config.SupportAPI.CacheTimeoutSeconds = a.v.GetInt("support.api.cache.timeout")
	}
}

func (a *App) envVarCacheOverrides() {
	if a.Config.Cache == nil {
		a.Config.Cache = &CacheOptions{}
	}

	if a.v.GetString("cache.backend") != "" {
		a.Config.Cache.Backend = a.v.GetString("cache.backend")
	}

	if a.v.GetString("cache.redis.addr") != "" {
		a.Config.Cache.RedisAddr = a.v.GetString("cache.redis.addr")
	}

	if a.v.GetString("cache.redis.password") != "" {
		a.Config.Cache.RedisPassword = a.v.GetString("cache.redis.password")
	}
}

func (a *App) applyDefaults() {
	if a.Config.ListenAddress == "" {
		a.Config.ListenAddress = defaultListenAddress
	}

	if a.Config.SupportAPI.BaseURL == "" {
		a.Config.SupportAPI.BaseURL = defaultBaseURL
	}

	if a.Config.SupportAPI.TokenURL == "" {
		a.Config.SupportAPI.TokenURL = defaultTokenURL
	}

	if a.Config.SupportAPI.ManufacturerPattern == "" {
		a.Config.SupportAPI.ManufacturerPattern = defaultManufacturerPattern
	}

	if a.Config.SupportAPI.TimeoutSeconds == 0 {
		a.Config.SupportAPI.TimeoutSeconds = defaultTimeoutSeconds
	}

	if a.Config.SupportAPI.CacheTimeoutSeconds == 0 {
		a.Config.SupportAPI.CacheTimeoutSeconds = defaultCacheTimeoutSeconds
	}

	if a.Config.Cache.Backend == "" {
		a.Config.Cache.Backend = CacheBackendMemory
	}
}

// validate collects configuration problems. A missing credential pair is
// not an error here - the aggregator reports it per-lookup instead.
func (c *Configuration) validate() error {
	var result *multierror.Error

	if _, err := regexp.Compile("(?i)" + c.SupportAPI.ManufacturerPattern); err != nil {
		result = multierror.Append(result, errors.Wrap(ErrConfig, "manufacturer_pattern: "+err.Error()))
	}

	if c.SupportAPI.TimeoutSeconds < 0 {
		result = multierror.Append(result, errors.Wrap(ErrConfig, "timeout must not be negative"))
	}

	if c.SupportAPI.CacheTimeoutSeconds < 0 {
		result = multierror.Append(result, errors.Wrap(ErrConfig, "cache_timeout must not be negative"))
	}

	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.Cache.RedisAddr == "" {
			result = multierror.Append(result, errors.Wrap(ErrConfig, "cache.redis_addr required for the redis backend"))
		}
	default:
		result = multierror.Append(result, errors.Wrap(ErrConfig, "unknown cache backend: "+c.Cache.Backend))
	}

	return result.ErrorOrNil()
}
