package payvalida

import (
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// Signer computes the checksum Payvalida requires on every request:
// hex(sha512(merchant + fields... + fixedHash)). Fields are concatenated
// as-is, with no separators, in the order each operation defines.
type Signer struct {
	merchant  string
	fixedHash string
}

// NewSigner creates a signer for the given merchant credentials
func NewSigner(merchant, fixedHash string) *Signer {
	return &Signer{
		merchant:  merchant,
		fixedHash: fixedHash,
	}
}

// Merchant returns the merchant identifier the signer was built with
func (s *Signer) Merchant() string {
	return s.merchant
}

// Sign returns the hex encoded checksum over fields
func (s *Signer) Sign(fields ...string) string {
	var b strings.Builder
	b.WriteString(s.merchant)
	for _, f := range fields {
		b.WriteString(f)
	}
	b.WriteString(s.fixedHash)

	sum := sha512.Sum512([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// CreatePlanChecksum signs merchant, amount, interval, intervalCount
func (s *Signer) CreatePlanChecksum(amount, interval, intervalCount string) string {
	return s.Sign(amount, interval, intervalCount)
}

// RegisterSubscriptionChecksum signs merchant, planID
func (s *Signer) RegisterSubscriptionChecksum(planID string) string {
	return s.Sign(planID)
}

// CancelSubscriptionChecksum signs merchant, subscriptionID
func (s *Signer) CancelSubscriptionChecksum(subscriptionID string) string {
	return s.Sign(subscriptionID)
}

// ListSubscriptionsChecksum signs merchant, requestID
func (s *Signer) ListSubscriptionsChecksum(requestID string) string {
	return s.Sign(requestID)
}

// GetSubscriptionChecksum signs merchant, subscriptionID, requestID
func (s *Signer) GetSubscriptionChecksum(subscriptionID, requestID string) string {
	return s.Sign(subscriptionID, requestID)
}
