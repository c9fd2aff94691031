package api

import (
	"context"

	"github.com/soaringjerry/Readiness/internal/services"
)

// Store is everything the HTTP layer needs from persistence. db.SQLiteStore
// satisfies it.
type Store interface {
	services.AssessmentStore
	services.CatalogStore
	services.CompanyStore
	services.ExportStore
	services.AnalyticsStore
	services.AuthStore
	Ping(ctx context.Context) error
}
