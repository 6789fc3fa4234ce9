package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// LockScope represents the scope of a run lock
type LockScope string

const (
	// LockScopePlanSync guards reconciliation and reset runs
	LockScopePlanSync LockScope = "plan_sync"
	// LockScopePlanHistory serializes history writes of one item
	LockScopePlanHistory LockScope = "plan_history"
)

// DefaultLockTTL bounds how long a crashed holder can block other runs
const DefaultLockTTL = 30 * time.Minute

// LockRequest describes a lock acquisition
type LockRequest struct {
	Key string
	TTL *time.Duration
}

// GetTTL returns the requested TTL or DefaultLockTTL when unset
func (r LockRequest) GetTTL() time.Duration {
	if r.TTL == nil {
		return DefaultLockTTL
	}
	return *r.TTL
}

// GenerateLockKey generates a deterministic lock key from a scope and parameters.
// Format: scope:key1=value1:key2=value2
func GenerateLockKey(scope LockScope, params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}

	return b.String()
}
