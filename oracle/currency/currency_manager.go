package currency

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/singleflight"
)

const (
	supportedCurrenciesCacheKey = "currencies:supported"

	// retry sooner when the list came from the static fallback
	fallbackRetryInterval = 5 * time.Minute
)

// CurrencyManagerImpl maintains the union of currencies the configured
// providers can serve. Lookups fail open: when every provider is down the
// static fallback list keeps validation working.
type CurrencyManagerImpl struct {
	config   core.CurrenciesConfig
	fetchers map[string]core.RateFetcher
	breakers map[string]core.CircuitBreaker
	cache    core.Cache
	logger   hclog.Logger

	refreshGroup singleflight.Group

	lock      sync.RWMutex
	supported map[string]struct{}
	sorted    []string
	expiresAt time.Time
}

var _ core.CurrencyValidator = (*CurrencyManagerImpl)(nil)

func NewCurrencyManager(
	config core.CurrenciesConfig,
	fetchers map[string]core.RateFetcher,
	breakers map[string]core.CircuitBreaker,
	cache core.Cache,
	logger hclog.Logger,
) *CurrencyManagerImpl {
	return &CurrencyManagerImpl{
		config:   config,
		fetchers: fetchers,
		breakers: breakers,
		cache:    cache,
		logger:   logger.Named("currency_manager"),
	}
}

func (cm *CurrencyManagerImpl) ValidatePair(ctx context.Context, pair core.CurrencyPair) error {
	cm.ensureFresh(ctx)

	cm.lock.RLock()
	defer cm.lock.RUnlock()

	for _, code := range []string{pair.Base, pair.Target} {
		if _, exists := cm.supported[code]; !exists {
			return core.NewUnsupportedCurrencyError(code)
		}
	}

	return nil
}

func (cm *CurrencyManagerImpl) SupportedCurrencies(ctx context.Context) []string {
	cm.ensureFresh(ctx)

	cm.lock.RLock()
	defer cm.lock.RUnlock()

	return cm.sorted
}

func (cm *CurrencyManagerImpl) ensureFresh(ctx context.Context) {
	cm.lock.RLock()
	fresh := time.Now().Before(cm.expiresAt)
	cm.lock.RUnlock()

	if fresh {
		return
	}

	// concurrent callers share one refresh
	_, _, _ = cm.refreshGroup.Do("refresh", func() (interface{}, error) {
		cm.refresh(ctx)

		return nil, nil
	})
}

func (cm *CurrencyManagerImpl) refresh(ctx context.Context) {
	if codes, found := cm.loadFromCache(ctx); found {
		cm.store(codes, cm.config.RefreshTTL())

		return
	}

	union := map[string]struct{}{}

	for name, fetcher := range cm.fetchers {
		breaker := cm.breakers[name]
		if breaker != nil && !breaker.Allow() {
			continue
		}

		codes, err := fetcher.FetchSupportedCurrencies(ctx)
		if err != nil {
			if breaker != nil {
				breaker.RecordFailure()
			}

			cm.logger.Warn("failed to fetch supported currencies", "provider", name, "err", err)

			continue
		}

		if breaker != nil {
			breaker.RecordSuccess()
		}

		for _, code := range codes {
			union[code] = struct{}{}
		}
	}

	codes := make([]string, 0, len(union))
	for code := range union {
		codes = append(codes, code)
	}

	sort.Strings(codes)

	if len(codes) == 0 {
		cm.logger.Warn("no provider returned supported currencies, using static fallback")

		cm.store(cm.config.Fallback, fallbackRetryInterval)

		return
	}

	cm.store(codes, cm.config.RefreshTTL())
	cm.saveToCache(ctx, codes)
}

func (cm *CurrencyManagerImpl) loadFromCache(ctx context.Context) ([]string, bool) {
	value, found, err := cm.cache.Get(ctx, supportedCurrenciesCacheKey)
	if err != nil || !found {
		return nil, false
	}

	var codes []string
	if err := json.Unmarshal(value, &codes); err != nil || len(codes) == 0 {
		return nil, false
	}

	return codes, true
}

func (cm *CurrencyManagerImpl) saveToCache(ctx context.Context, codes []string) {
	value, err := json.Marshal(codes)
	if err != nil {
		return
	}

	if err := cm.cache.Set(ctx, supportedCurrenciesCacheKey, value, cm.config.RefreshTTL()); err != nil {
		cm.logger.Debug("failed to cache supported currencies", "err", err)
	}
}

func (cm *CurrencyManagerImpl) store(codes []string, validFor time.Duration) {
	supported := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		supported[code] = struct{}{}
	}

	cm.lock.Lock()
	defer cm.lock.Unlock()

	cm.supported = supported
	cm.sorted = codes
	cm.expiresAt = time.Now().Add(validFor)
}
