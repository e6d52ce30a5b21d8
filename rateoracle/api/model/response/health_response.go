package response

import (
	oracleCore "github.com/Ethernal-Tech/fx-oracle/oracle/core"
	"github.com/Ethernal-Tech/fx-oracle/oracle/fanout"
)

const (
	HealthStatusOk       = "ok"
	HealthStatusDegraded = "degraded"
)

type ProviderHealth struct {
	State        string `json:"state"`
	FailureCount int    `json:"failureCount"`
}

type HealthResponse struct {
	Status         string                    `json:"status"`
	CacheAvailable bool                      `json:"cacheAvailable"`
	Providers      map[string]ProviderHealth `json:"providers"`
	Fanout         fanout.HubSnapshot        `json:"fanout"`
}

// NewHealthResponse reports degraded as soon as any breaker has left the
// closed state or the cache is unreachable.
func NewHealthResponse(
	breakers map[string]oracleCore.BreakerSnapshot, cacheAvailable bool, hubSnapshot fanout.HubSnapshot,
) *HealthResponse {
	status := HealthStatusOk
	if !cacheAvailable {
		status = HealthStatusDegraded
	}

	providers := make(map[string]ProviderHealth, len(breakers))

	for name, snapshot := range breakers {
		providers[name] = ProviderHealth{
			State:        snapshot.State.String(),
			FailureCount: snapshot.FailureCount,
		}

		if snapshot.State != oracleCore.BreakerClosed {
			status = HealthStatusDegraded
		}
	}

	return &HealthResponse{
		Status:         status,
		CacheAvailable: cacheAvailable,
		Providers:      providers,
		Fanout:         hubSnapshot,
	}
}
