package app

import (
	"context"
	"time"

	"github.com/Amund211/lana/internal/adapters/cache"
	"github.com/Amund211/lana/internal/constants"
	"github.com/Amund211/lana/internal/logging"
)

const (
	HealthStatusHealthy  = "healthy"
	HealthStatusDegraded = "degraded"
)

type Health struct {
	Status    string
	Timestamp time.Time
	Version   string
	Services  map[string]string
}

type GetHealth func(ctx context.Context) Health

type pinger interface {
	PingContext(ctx context.Context) error
}

// BuildGetHealth reports the status of the service and its collaborators.
//
// db may be nil when no shared database is configured.
func BuildGetHealth(
	store *cache.Store,
	db pinger,
	generatorName string,
	speechName string,
	nowFunc func() time.Time,
) GetHealth {
	return func(ctx context.Context) Health {
		status := HealthStatusHealthy
		services := map[string]string{
			"cache":     store.BackendName(),
			"database":  "not configured",
			"generator": generatorName,
			"speech":    speechName,
		}

		if db != nil {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()

			if err := db.PingContext(pingCtx); err != nil {
				logging.FromContext(ctx).WarnContext(ctx, "Database ping failed", "error", err.Error())
				services["database"] = "unavailable"
				status = HealthStatusDegraded
			} else {
				services["database"] = "connected"
			}
		}

		return Health{
			Status:    status,
			Timestamp: nowFunc(),
			Version:   constants.VERSION,
			Services:  services,
		}
	}
}
