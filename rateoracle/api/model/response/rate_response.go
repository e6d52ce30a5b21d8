package response

import (
	"time"

	oracleCore "github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/shopspring/decimal"
)

// RateResponse mirrors the broadcast wire shape so REST and websocket
// consumers decode the same rate document.
type RateResponse struct {
	Pair                  string          `json:"pair"`
	Base                  string          `json:"base"`
	Target                string          `json:"target"`
	Rate                  decimal.Decimal `json:"rate"`
	ConfidenceLevel       string          `json:"confidence_level"`
	ContributingProviders []string        `json:"contributing_providers"`
	PrimaryUsed           bool            `json:"primary_used"`
	Timestamp             time.Time       `json:"timestamp"`
	Cached                bool            `json:"cached"`
}

func NewRateResponse(rate oracleCore.AggregatedRate) *RateResponse {
	return &RateResponse{
		Pair:                  rate.Pair.String(),
		Base:                  rate.Pair.Base,
		Target:                rate.Pair.Target,
		Rate:                  rate.Rate,
		ConfidenceLevel:       rate.ConfidenceLevel,
		ContributingProviders: rate.Providers,
		PrimaryUsed:           rate.PrimaryUsed,
		Timestamp:             rate.Timestamp,
		Cached:                rate.Cached,
	}
}

// NewRateResponseFromBroadcast reshapes a cached broadcast payload, dropping
// the message type envelope.
func NewRateResponseFromBroadcast(broadcast oracleCore.RateBroadcast) *RateResponse {
	return &RateResponse{
		Pair:                  broadcast.Pair,
		Base:                  broadcast.Base,
		Target:                broadcast.Target,
		Rate:                  broadcast.Rate,
		ConfidenceLevel:       broadcast.ConfidenceLevel,
		ContributingProviders: broadcast.ContributingProviders,
		PrimaryUsed:           broadcast.PrimaryUsed,
		Timestamp:             broadcast.Timestamp,
		Cached:                broadcast.Cached,
	}
}
