package payvalida

import (
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sha512Hex(s string) string {
	sum := sha512.Sum512([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestSigner_FieldOrder(t *testing.T) {
	signer := NewSigner("M", "H")

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "create plan",
			got:      signer.CreatePlanChecksum("10.00", "month", "1"),
			expected: sha512Hex("M10.00month1H"),
		},
		{
			name:     "register subscription",
			got:      signer.RegisterSubscriptionChecksum("pln_1"),
			expected: sha512Hex("Mpln_1H"),
		},
		{
			name:     "cancel subscription",
			got:      signer.CancelSubscriptionChecksum("sub_9"),
			expected: sha512Hex("Msub_9H"),
		},
		{
			name:     "list subscriptions",
			got:      signer.ListSubscriptionsChecksum("10"),
			expected: sha512Hex("M10H"),
		},
		{
			name:     "get subscription",
			got:      signer.GetSubscriptionChecksum("sub_9", "10"),
			expected: sha512Hex("Msub_910H"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

func TestSigner_NoNormalization(t *testing.T) {
	signer := NewSigner("M", "H")

	// "10.0" and "10.00" are different wire values and must sign differently
	assert.NotEqual(t, signer.CreatePlanChecksum("10.0", "month", "1"), signer.CreatePlanChecksum("10.00", "month", "1"))
	// no separators: shifting a character between fields gives the same digest
	assert.Equal(t, signer.Sign("ab", "c"), signer.Sign("a", "bc"))
	assert.Len(t, signer.Sign(), 128)
	assert.Equal(t, sha512Hex("MH"), signer.Sign())
}
