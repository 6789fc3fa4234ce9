package types

import (
	"fmt"
	"strings"

	ierr "github.com/flexprice/plansync/internal/errors"
	"github.com/samber/lo"
)

// Environment selects which Payvalida host every provider call targets
type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
)

func (e Environment) String() string {
	return string(e)
}

// Validate validates the environment
func (e Environment) Validate() error {
	allowed := []Environment{EnvironmentSandbox, EnvironmentProduction}
	if lo.Contains(allowed, e) {
		return nil
	}
	return ierr.NewError("invalid environment").
		WithHint(fmt.Sprintf("Environment must be one of: %s", strings.Join(lo.Map(allowed, func(e Environment, _ int) string { return string(e) }), ", "))).
		WithReportableDetails(map[string]interface{}{
			"environment": e,
		}).
		Mark(ierr.ErrValidation)
}

// SanitizeEnvironment maps anything that is not exactly "production" to sandbox
func SanitizeEnvironment(value string) Environment {
	if Environment(value) == EnvironmentProduction {
		return EnvironmentProduction
	}
	return EnvironmentSandbox
}

// StoreType selects the plan history storage adapter
type StoreType string

const (
	StoreTypeMemory   StoreType = "memory"
	StoreTypeRedis    StoreType = "redis"
	StoreTypePostgres StoreType = "postgres"
)

// Validate validates the store type
func (s StoreType) Validate() error {
	allowed := []StoreType{StoreTypeMemory, StoreTypeRedis, StoreTypePostgres}
	if lo.Contains(allowed, s) {
		return nil
	}
	return ierr.NewErrorf("invalid store type: %s", s).
		WithHint("Store type must be one of: memory, redis, postgres").
		Mark(ierr.ErrValidation)
}

// LogLevel is the minimum level the logger emits
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
