package sentry

import (
	"context"
	"fmt"
	"time"

	"github.com/flexprice/plansync/internal/config"
	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/flexprice/plansync/internal/logger"
	"github.com/flexprice/plansync/internal/types"
	"github.com/getsentry/sentry-go"
)

// Service reports failures to Sentry. A nil or disabled Service does nothing.
type Service struct {
	cfg    *config.Configuration
	logger *logger.Logger
	hub    *sentry.Hub
}

// NewSentryService initializes the Sentry client when it is enabled
func NewSentryService(cfg *config.Configuration, logger *logger.Logger) (*Service, error) {
	s := &Service{cfg: cfg, logger: logger}
	if !cfg.Sentry.Enabled {
		return s, nil
	}

	environment := cfg.Sentry.Environment
	if environment == "" {
		environment = cfg.Payvalida.Environment.String()
	}

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      environment,
		SampleRate:       cfg.Sentry.SampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid Sentry configuration").
			Mark(ierr.ErrValidation)
	}

	s.hub = sentry.NewHub(client, sentry.NewScope())
	logger.Infow("sentry initialized", "environment", environment)
	return s, nil
}

// IsEnabled reports whether errors are sent anywhere
func (s *Service) IsEnabled() bool {
	return s != nil && s.hub != nil
}

// CaptureException sends err to Sentry
func (s *Service) CaptureException(err error) {
	if !s.IsEnabled() || err == nil {
		return
	}
	s.hub.CaptureException(err)
}

// CaptureItemError sends a per-item reconciliation failure, tagged with the
// run, the item and the error's reportable details
func (s *Service) CaptureItemError(ctx context.Context, itemID string, err error) {
	if !s.IsEnabled() || err == nil {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("item_id", itemID)
		if runID := types.GetRunID(ctx); runID != "" {
			scope.SetTag("run_id", runID)
		}
		for k, v := range ierr.ReportableDetails(err) {
			scope.SetExtra(k, fmt.Sprint(v))
		}
		s.hub.CaptureException(err)
	})
}

// Flush waits for buffered events to be delivered
func (s *Service) Flush(timeout time.Duration) bool {
	if !s.IsEnabled() {
		return true
	}
	return s.hub.Flush(timeout)
}
