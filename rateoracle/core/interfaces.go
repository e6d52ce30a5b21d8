package core

import (
	"net/http"

	oracleCore "github.com/Ethernal-Tech/fx-oracle/oracle/core"
)

type APIEndpointHandler func(w http.ResponseWriter, r *http.Request)

type APIEndpoint struct {
	Path       string
	Method     string
	Handler    APIEndpointHandler
	APIKeyAuth bool
}

type APIController interface {
	GetPathPrefix() string
	GetEndpoints() []*APIEndpoint
}

type API interface {
	Start()
	Dispose() error
}

// RatesHistoryDB persists every aggregated rate. The store also acts as a rate
// sink, so it receives rates the moment the aggregator produces them.
type RatesHistoryDB interface {
	AddRate(rate oracleCore.AggregatedRate) error
	GetRatesForPair(pair oracleCore.CurrencyPair, limit int) ([]oracleCore.AggregatedRate, error)
	Close() error
}

type RateOracle interface {
	Start() error
	Dispose() error
	ErrorCh() <-chan error
}
