package service

import (
	"time"

	"github.com/flexprice/plansync/internal/cache"
	"github.com/flexprice/plansync/internal/config"
	"github.com/flexprice/plansync/internal/domain/catalog"
	"github.com/flexprice/plansync/internal/domain/planhistory"
	"github.com/flexprice/plansync/internal/integration/payvalida"
	"github.com/flexprice/plansync/internal/lock"
	"github.com/flexprice/plansync/internal/logger"
	"github.com/flexprice/plansync/internal/metrics"
	"github.com/flexprice/plansync/internal/sentry"
)

// ServiceParams holds all dependencies for services
type ServiceParams struct {
	Logger  *logger.Logger
	Config  *config.Configuration
	Client  payvalida.Client
	Catalog catalog.Gateway

	PlanHistoryRepo planhistory.Repository

	Guard   lock.Guard
	Cache   cache.Cache
	Metrics *metrics.Metrics
	Sentry  *sentry.Service

	// Now stamps plan records; defaults to time.Now
	Now func() time.Time
}

// NewServiceParams creates a new ServiceParams instance
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	client payvalida.Client,
	catalogGateway catalog.Gateway,
	planHistoryRepo planhistory.Repository,
	guard lock.Guard,
	cache cache.Cache,
	metrics *metrics.Metrics,
	sentryService *sentry.Service,
) ServiceParams {
	return ServiceParams{
		Logger:          logger,
		Config:          config,
		Client:          client,
		Catalog:         catalogGateway,
		PlanHistoryRepo: planHistoryRepo,
		Guard:           guard,
		Cache:           cache,
		Metrics:         metrics,
		Sentry:          sentryService,
		Now:             time.Now,
	}
}

func (p ServiceParams) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}
