package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	oracleCore "github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/api/model/response"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/api/utils"
	"github.com/Ethernal-Tech/fx-oracle/rateoracle/core"
	"github.com/hashicorp/go-hclog"
	"github.com/shopspring/decimal"
)

type RatesControllerImpl struct {
	aggregator        oracleCore.RateAggregator
	currencyValidator oracleCore.CurrencyValidator
	cacheStore        oracleCore.Cache
	historyDB         core.RatesHistoryDB
	logger            hclog.Logger
}

var _ core.APIController = (*RatesControllerImpl)(nil)

func NewRatesController(
	aggregator oracleCore.RateAggregator,
	currencyValidator oracleCore.CurrencyValidator,
	cacheStore oracleCore.Cache,
	historyDB core.RatesHistoryDB,
	logger hclog.Logger,
) *RatesControllerImpl {
	return &RatesControllerImpl{
		aggregator:        aggregator,
		currencyValidator: currencyValidator,
		cacheStore:        cacheStore,
		historyDB:         historyDB,
		logger:            logger,
	}
}

func (*RatesControllerImpl) GetPathPrefix() string {
	return "rates"
}

func (c *RatesControllerImpl) GetEndpoints() []*core.APIEndpoint {
	return []*core.APIEndpoint{
		{Path: "pair", Method: http.MethodGet, Handler: c.getPair, APIKeyAuth: true},
		{Path: "convert", Method: http.MethodGet, Handler: c.convert, APIKeyAuth: true},
		{Path: "latest", Method: http.MethodGet, Handler: c.getLatest, APIKeyAuth: true},
		{Path: "history", Method: http.MethodGet, Handler: c.getHistory, APIKeyAuth: true},
		{Path: "currencies", Method: http.MethodGet, Handler: c.getCurrencies, APIKeyAuth: true},
	}
}

func (c *RatesControllerImpl) getPair(w http.ResponseWriter, r *http.Request) {
	c.logger.Debug("getPair called", "url", r.URL)

	pair, ok := c.pairFromQuery(w, r)
	if !ok {
		return
	}

	if err := c.currencyValidator.ValidatePair(r.Context(), pair); err != nil {
		c.writeRateError(w, r, err)

		return
	}

	rate, err := c.aggregator.Resolve(r.Context(), pair)
	if err != nil {
		c.writeRateError(w, r, err)

		return
	}

	c.logger.Debug("getPair success", "url", r.URL)
	utils.WriteResponse(w, r, http.StatusOK, response.NewRateResponse(rate), c.logger)
}

func (c *RatesControllerImpl) convert(w http.ResponseWriter, r *http.Request) {
	c.logger.Debug("convert called", "url", r.URL)

	pair, ok := c.pairFromQuery(w, r)
	if !ok {
		return
	}

	amountArr, exists := r.URL.Query()["amount"]
	if !exists || len(amountArr) == 0 {
		utils.WriteErrorResponse(w, r, http.StatusBadRequest, errors.New("amount missing from query"), c.logger)

		return
	}

	amount, err := decimal.NewFromString(amountArr[0])
	if err != nil {
		utils.WriteErrorResponse(w, r, http.StatusBadRequest, fmt.Errorf("invalid amount: %w", err), c.logger)

		return
	}

	if err := c.currencyValidator.ValidatePair(r.Context(), pair); err != nil {
		c.writeRateError(w, r, err)

		return
	}

	result, rate, err := c.aggregator.Convert(r.Context(), pair, amount)
	if err != nil {
		c.writeRateError(w, r, err)

		return
	}

	c.logger.Debug("convert success", "url", r.URL)
	utils.WriteResponse(w, r, http.StatusOK, response.NewConvertResponse(amount, result, rate), c.logger)
}

// getLatest serves the ingestion worker's last published value straight from
// the cache, without touching the aggregator or any provider.
func (c *RatesControllerImpl) getLatest(w http.ResponseWriter, r *http.Request) {
	c.logger.Debug("getLatest called", "url", r.URL)

	pair, ok := c.pairFromQuery(w, r)
	if !ok {
		return
	}

	payload, found, err := c.cacheStore.Get(r.Context(), pair.LatestCacheKey())
	if err != nil {
		utils.WriteErrorResponse(w, r, http.StatusInternalServerError, err, c.logger)

		return
	}

	if !found {
		utils.WriteErrorResponse(w, r, http.StatusNotFound,
			fmt.Errorf("no ingested rate for pair %s", pair), c.logger)

		return
	}

	var broadcast oracleCore.RateBroadcast

	if err := json.Unmarshal(payload, &broadcast); err != nil {
		utils.WriteErrorResponse(w, r, http.StatusInternalServerError,
			fmt.Errorf("corrupted cached rate: %w", err), c.logger)

		return
	}

	c.logger.Debug("getLatest success", "url", r.URL)
	utils.WriteResponse(w, r, http.StatusOK, response.NewRateResponseFromBroadcast(broadcast), c.logger)
}

func (c *RatesControllerImpl) getHistory(w http.ResponseWriter, r *http.Request) {
	c.logger.Debug("getHistory called", "url", r.URL)

	pair, ok := c.pairFromQuery(w, r)
	if !ok {
		return
	}

	limit := 0

	if limitArr, exists := r.URL.Query()["limit"]; exists && len(limitArr) > 0 {
		parsedLimit, err := strconv.Atoi(limitArr[0])
		if err != nil || parsedLimit < 0 {
			utils.WriteErrorResponse(w, r, http.StatusBadRequest, errors.New("invalid limit"), c.logger)

			return
		}

		limit = parsedLimit
	}

	rates, err := c.historyDB.GetRatesForPair(pair, limit)
	if err != nil {
		utils.WriteErrorResponse(w, r, http.StatusInternalServerError, err, c.logger)

		return
	}

	c.logger.Debug("getHistory success", "url", r.URL)
	utils.WriteResponse(w, r, http.StatusOK, response.NewHistoryResponse(pair, rates), c.logger)
}

func (c *RatesControllerImpl) getCurrencies(w http.ResponseWriter, r *http.Request) {
	c.logger.Debug("getCurrencies called", "url", r.URL)

	currencies := c.currencyValidator.SupportedCurrencies(r.Context())

	utils.WriteResponse(w, r, http.StatusOK, response.NewCurrenciesResponse(currencies), c.logger)
}

func (c *RatesControllerImpl) pairFromQuery(w http.ResponseWriter, r *http.Request) (oracleCore.CurrencyPair, bool) {
	queryValues := r.URL.Query()

	baseArr, exists := queryValues["base"]
	if !exists || len(baseArr) == 0 {
		utils.WriteErrorResponse(w, r, http.StatusBadRequest, errors.New("base missing from query"), c.logger)

		return oracleCore.CurrencyPair{}, false
	}

	targetArr, exists := queryValues["target"]
	if !exists || len(targetArr) == 0 {
		utils.WriteErrorResponse(w, r, http.StatusBadRequest, errors.New("target missing from query"), c.logger)

		return oracleCore.CurrencyPair{}, false
	}

	pair, err := oracleCore.NewCurrencyPair(baseArr[0], targetArr[0])
	if err != nil {
		utils.WriteErrorResponse(w, r, http.StatusBadRequest, err, c.logger)

		return oracleCore.CurrencyPair{}, false
	}

	return pair, true
}

func (c *RatesControllerImpl) writeRateError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, oracleCore.ErrUnsupportedCurrency):
		status = http.StatusBadRequest
	case errors.Is(err, oracleCore.ErrAllProvidersUnavailable):
		status = http.StatusServiceUnavailable
	}

	utils.WriteErrorResponse(w, r, status, err, c.logger)
}
