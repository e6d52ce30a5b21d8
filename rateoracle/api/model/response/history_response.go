package response

import (
	oracleCore "github.com/Ethernal-Tech/fx-oracle/oracle/core"
)

type HistoryResponse struct {
	Pair  string          `json:"pair"`
	Rates []*RateResponse `json:"rates"`
	Count int             `json:"count"`
}

func NewHistoryResponse(pair oracleCore.CurrencyPair, rates []oracleCore.AggregatedRate) *HistoryResponse {
	rateResponses := make([]*RateResponse, 0, len(rates))
	for _, rate := range rates {
		rateResponses = append(rateResponses, NewRateResponse(rate))
	}

	return &HistoryResponse{
		Pair:  pair.String(),
		Rates: rateResponses,
		Count: len(rateResponses),
	}
}
