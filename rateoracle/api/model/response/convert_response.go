package response

import (
	"time"

	oracleCore "github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/shopspring/decimal"
)

type ConvertResponse struct {
	Pair            string          `json:"pair"`
	Base            string          `json:"base"`
	Target          string          `json:"target"`
	Amount          decimal.Decimal `json:"amount"`
	Result          decimal.Decimal `json:"result"`
	Rate            decimal.Decimal `json:"rate"`
	ConfidenceLevel string          `json:"confidence_level"`
	Timestamp       time.Time       `json:"timestamp"`
	Cached          bool            `json:"cached"`
}

func NewConvertResponse(
	amount decimal.Decimal, result decimal.Decimal, rate oracleCore.AggregatedRate,
) *ConvertResponse {
	return &ConvertResponse{
		Pair:            rate.Pair.String(),
		Base:            rate.Pair.Base,
		Target:          rate.Pair.Target,
		Amount:          amount,
		Result:          result,
		Rate:            rate.Rate,
		ConfidenceLevel: rate.ConfidenceLevel,
		Timestamp:       rate.Timestamp,
		Cached:          rate.Cached,
	}
}
