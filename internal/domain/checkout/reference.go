package checkout

import (
	"strings"

	"github.com/google/uuid"
)

// ReferencePrefix marks payment references issued by this service
const ReferencePrefix = "pay_"

// NewPaymentReference returns a globally unique payment reference
func NewPaymentReference() string {
	return ReferencePrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsPaymentReference reports whether s has the shape of an issued reference
func IsPaymentReference(s string) bool {
	if !strings.HasPrefix(s, ReferencePrefix) {
		return false
	}
	rest := s[len(ReferencePrefix):]
	if len(rest) != 32 {
		return false
	}
	for _, r := range rest {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}
