package core

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Ethernal-Tech/fx-oracle/logger"
)

const (
	FetcherFixerIO      = "fixerio"
	FetcherOpenExchange = "openexchange"
	FetcherCurrencyAPI  = "currencyapi"
	FetcherDummy        = "dummy"
)

type AppSettings struct {
	Logger  logger.LoggerConfig `json:"logger"`
	DbsPath string              `json:"dbsPath"`
}

type FetcherConfig struct {
	Name               string `json:"-"`
	URL                string `json:"url"`
	APIKey             string `json:"apiKey"`
	TimeoutMillis      uint64 `json:"timeoutMillis"`
	RequestsPerMinute  int    `json:"requestsPerMinute"`
	MaxRetries         uint64 `json:"maxRetries"`
	RetryBackoffMillis uint64 `json:"retryBackoffMillis"`
	Disabled           bool   `json:"disabled"`
}

func (fc FetcherConfig) Timeout() time.Duration {
	return time.Duration(fc.TimeoutMillis) * time.Millisecond
}

func (fc FetcherConfig) RetryBackoff() time.Duration {
	return time.Duration(fc.RetryBackoffMillis) * time.Millisecond
}

type BreakerConfig struct {
	FailureThreshold      int    `json:"failureThreshold"`
	RecoveryTimeoutMillis uint64 `json:"recoveryTimeoutMillis"`
	SuccessThreshold      int    `json:"successThreshold"`
}

func (bc BreakerConfig) RecoveryTimeout() time.Duration {
	return time.Duration(bc.RecoveryTimeoutMillis) * time.Millisecond
}

type AggregatorConfig struct {
	PrimaryProvider               string `json:"primaryProvider"`
	CacheTTLMillis                uint64 `json:"cacheTtlMillis"`
	LowConfidenceFailureThreshold int    `json:"lowConfidenceFailureThreshold"`
	DedupeResolve                 bool   `json:"dedupeResolve"`
}

func (ac AggregatorConfig) CacheTTL() time.Duration {
	return time.Duration(ac.CacheTTLMillis) * time.Millisecond
}

type CacheConfig struct {
	RedisURL            string `json:"redisUrl"` // empty means the in-memory cache is used
	RedisPassword       string `json:"redisPassword"`
	RedisDB             int    `json:"redisDb"`
	ReconnectTimeMillis uint64 `json:"reconnectTimeMillis"`
}

func (cc CacheConfig) ReconnectTime() time.Duration {
	return time.Duration(cc.ReconnectTimeMillis) * time.Millisecond
}

type IngestConfig struct {
	BaseCurrencies       []string `json:"baseCurrencies"`
	TargetCurrencies     []string `json:"targetCurrencies"`
	UpdateIntervalMillis uint64   `json:"updateIntervalMillis"`
	BroadcastChannel     string   `json:"broadcastChannel"`
}

func (ic IngestConfig) UpdateInterval() time.Duration {
	return time.Duration(ic.UpdateIntervalMillis) * time.Millisecond
}

// TrackedPairs builds the worker's pair set as base x target, identity pairs
// excluded.
func (ic IngestConfig) TrackedPairs() ([]CurrencyPair, error) {
	pairs := make([]CurrencyPair, 0, len(ic.BaseCurrencies)*len(ic.TargetCurrencies))

	for _, base := range ic.BaseCurrencies {
		for _, target := range ic.TargetCurrencies {
			if strings.EqualFold(base, target) {
				continue
			}

			pair, err := NewCurrencyPair(base, target)
			if err != nil {
				return nil, fmt.Errorf("invalid tracked pair %s/%s: %w", base, target, err)
			}

			pairs = append(pairs, pair)
		}
	}

	return pairs, nil
}

type FanoutConfig struct {
	ListenerQueueSize int    `json:"listenerQueueSize"`
	PingPeriodMillis  uint64 `json:"pingPeriodMillis"`
	PongWaitMillis    uint64 `json:"pongWaitMillis"`
}

func (fc FanoutConfig) PingPeriod() time.Duration {
	return time.Duration(fc.PingPeriodMillis) * time.Millisecond
}

func (fc FanoutConfig) PongWait() time.Duration {
	return time.Duration(fc.PongWaitMillis) * time.Millisecond
}

type CurrenciesConfig struct {
	RefreshTTLMillis uint64   `json:"refreshTtlMillis"`
	Fallback         []string `json:"fallback"`
}

func (cc CurrenciesConfig) RefreshTTL() time.Duration {
	return time.Duration(cc.RefreshTTLMillis) * time.Millisecond
}

type HistoryConfig struct {
	KafkaBrokers []string `json:"kafkaBrokers"`
	KafkaTopic   string   `json:"kafkaTopic"`
}

type AppConfig struct {
	Fetchers   map[string]*FetcherConfig `json:"fetchers"`
	Breaker    BreakerConfig             `json:"breaker"`
	Aggregator AggregatorConfig          `json:"aggregator"`
	Cache      CacheConfig               `json:"cache"`
	Ingest     IngestConfig              `json:"ingest"`
	Fanout     FanoutConfig              `json:"fanout"`
	Currencies CurrenciesConfig          `json:"currencies"`
	History    HistoryConfig             `json:"history"`
	Settings   AppSettings               `json:"appSettings"`
}

func (appConfig *AppConfig) FillOut() {
	for name, fetcherConfig := range appConfig.Fetchers {
		fetcherConfig.Name = name

		if fetcherConfig.TimeoutMillis == 0 {
			fetcherConfig.TimeoutMillis = 3000
		}

		if fetcherConfig.RequestsPerMinute == 0 {
			fetcherConfig.RequestsPerMinute = 60
		}

		if fetcherConfig.RetryBackoffMillis == 0 {
			fetcherConfig.RetryBackoffMillis = 300
		}
	}

	if appConfig.Breaker.FailureThreshold == 0 {
		appConfig.Breaker.FailureThreshold = 5
	}

	if appConfig.Breaker.RecoveryTimeoutMillis == 0 {
		appConfig.Breaker.RecoveryTimeoutMillis = 3600000
	}

	if appConfig.Breaker.SuccessThreshold == 0 {
		appConfig.Breaker.SuccessThreshold = 2
	}

	if appConfig.Aggregator.CacheTTLMillis == 0 {
		appConfig.Aggregator.CacheTTLMillis = 300000
	}

	if appConfig.Aggregator.LowConfidenceFailureThreshold == 0 {
		appConfig.Aggregator.LowConfidenceFailureThreshold = 3
	}

	if appConfig.Cache.ReconnectTimeMillis == 0 {
		appConfig.Cache.ReconnectTimeMillis = 5000
	}

	if len(appConfig.Ingest.BaseCurrencies) == 0 {
		appConfig.Ingest.BaseCurrencies = []string{"USD", "EUR", "GBP", "NGN"}
	}

	if len(appConfig.Ingest.TargetCurrencies) == 0 {
		appConfig.Ingest.TargetCurrencies = []string{
			"USD", "EUR", "GBP", "NGN", "JPY", "CAD", "AUD", "CHF", "CNY", "INR",
		}
	}

	if appConfig.Ingest.UpdateIntervalMillis == 0 {
		appConfig.Ingest.UpdateIntervalMillis = 120000
	}

	if appConfig.Ingest.BroadcastChannel == "" {
		appConfig.Ingest.BroadcastChannel = "rates:broadcast"
	}

	if appConfig.Fanout.ListenerQueueSize == 0 {
		appConfig.Fanout.ListenerQueueSize = 64
	}

	if appConfig.Fanout.PingPeriodMillis == 0 {
		appConfig.Fanout.PingPeriodMillis = 30000
	}

	if appConfig.Fanout.PongWaitMillis == 0 {
		appConfig.Fanout.PongWaitMillis = 60000
	}

	if appConfig.Currencies.RefreshTTLMillis == 0 {
		appConfig.Currencies.RefreshTTLMillis = 86400000
	}

	if len(appConfig.Currencies.Fallback) == 0 {
		appConfig.Currencies.Fallback = []string{
			"USD", "EUR", "GBP", "JPY", "CAD", "AUD", "CHF", "CNY", "INR", "NGN",
			"ZAR", "BRL", "MXN", "SGD", "HKD", "NOK", "SEK", "DKK", "PLN", "KES",
		}
	}

	if appConfig.History.KafkaTopic == "" {
		appConfig.History.KafkaTopic = "fx.rates"
	}

	if appConfig.Settings.DbsPath == "" {
		appConfig.Settings.DbsPath = "./db"
	}
}

// PopulateFromEnv overrides secrets and endpoints from the environment, so
// api keys never have to live inside config.json.
func (appConfig *AppConfig) PopulateFromEnv() {
	setFetcherKeyFromEnv := func(fetcherName, envName string) {
		if value := os.Getenv(envName); value != "" {
			if fetcherConfig, exists := appConfig.Fetchers[fetcherName]; exists {
				fetcherConfig.APIKey = value
			}
		}
	}

	setFetcherKeyFromEnv(FetcherFixerIO, "FIXERIO_API_KEY")
	setFetcherKeyFromEnv(FetcherOpenExchange, "OPENEXCHANGE_APP_ID")
	setFetcherKeyFromEnv(FetcherCurrencyAPI, "CURRENCYAPI_API_KEY")

	if value := os.Getenv("REDIS_URL"); value != "" {
		appConfig.Cache.RedisURL = value
	}

	if value := os.Getenv("REDIS_PASSWORD"); value != "" {
		appConfig.Cache.RedisPassword = value
	}

	if value := os.Getenv("KAFKA_BROKERS"); value != "" {
		appConfig.History.KafkaBrokers = strings.Split(value, ",")
	}
}

// EnabledFetchers returns the configured fetchers that are not disabled.
func (appConfig *AppConfig) EnabledFetchers() map[string]*FetcherConfig {
	result := make(map[string]*FetcherConfig, len(appConfig.Fetchers))

	for name, fetcherConfig := range appConfig.Fetchers {
		if !fetcherConfig.Disabled {
			result[name] = fetcherConfig
		}
	}

	return result
}
