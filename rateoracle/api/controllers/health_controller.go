package controllers

import (
	"net/http"

	oracleCore "github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/Ethernal-Tech/fx-oracle/oracle/fanout"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/api/model/response"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/api/utils"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/core"
	"github.com/hashicorp/go-hclog"
)

type HealthControllerImpl struct {
	aggregator oracleCore.RateAggregator
	cacheStore oracleCore.Cache
	hub        *fanout.Hub
	logger     hclog.Logger
}

var _ core.APIController = (*HealthControllerImpl)(nil)

func NewHealthController(
	aggregator oracleCore.RateAggregator,
	cacheStore oracleCore.Cache,
	hub *fanout.Hub,
	logger hclog.Logger,
) *HealthControllerImpl {
	return &HealthControllerImpl{
		aggregator: aggregator,
		cacheStore: cacheStore,
		hub:        hub,
		logger:     logger,
	}
}

func (*HealthControllerImpl) GetPathPrefix() string {
	return "health"
}

// The status endpoint skips api key auth so it can serve as a liveness probe.
func (c *HealthControllerImpl) GetEndpoints() []*core.APIEndpoint {
	return []*core.APIEndpoint{
		{Path: "status", Method: http.MethodGet, Handler: c.getStatus, APIKeyAuth: false},
	}
}

func (c *HealthControllerImpl) getStatus(w http.ResponseWriter, r *http.Request) {
	c.logger.Debug("getStatus called", "url", r.URL)

	healthResponse := response.NewHealthResponse(
		c.aggregator.HealthSnapshot(), c.cacheStore.IsAvailable(), c.hub.Snapshot())

	utils.WriteResponse(w, r, http.StatusOK, healthResponse, c.logger)
}
