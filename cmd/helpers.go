package cmd

import (
	"github.com/netops-toolbox/supportwatch/internal/app"
	"github.com/netops-toolbox/supportwatch/internal/cache"
	"github.com/netops-toolbox/supportwatch/internal/cisco"
	"github.com/netops-toolbox/supportwatch/internal/support"
)

func initCacheStore(theApp *app.App) (cache.Store, error) {
	if theApp.Config.Cache.Backend == app.CacheBackendRedis {
		return cache.NewRedisStore(
			theApp.Config.Cache.RedisAddr,
			theApp.Config.Cache.RedisPassword,
			theApp.Config.Cache.RedisDB,
		)
	}

	return cache.NewMemoryStore(), nil
}

func initAggregator(theApp *app.App) (*support.Aggregator, error) {
	store, err := initCacheStore(theApp)
	if err != nil {
		return nil, err
	}

	var client *cisco.Client

	if theApp.Config.SupportAPI.CredentialsConfigured() {
		client, err = cisco.NewClient(theApp.Config.SupportAPI, store, theApp.Logger)
		if err != nil {
			return nil, err
		}
	} else {
		// lookups still run, reporting the condition per-record
		theApp.Logger.Warn("support API credentials not configured")
	}

	return support.NewAggregator(client, theApp.Config.SupportAPI.ManufacturerPattern, theApp.Logger)
}
