package services

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	codeMin   = 100000
	codeSpan  = 900000
	base36    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	suffixLen = 6
)

// generateCode draws a uniform 6-digit numeric code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

// codeMatches compares a stored code against a submitted one in constant time
// and rejects it once expiry has passed.
func codeMatches(stored *string, expiry *time.Time, submitted string, now time.Time) bool {
	if stored == nil || expiry == nil {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(*stored), []byte(strings.TrimSpace(submitted))) != 1 {
		return false
	}
	return !now.After(*expiry)
}

// generateOrderNumber returns ORD-<unix millis>-<6 upper-case base36 chars>.
func generateOrderNumber(now time.Time) (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(base36)))
	for i := 0; i < suffixLen; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate order number: %w", err)
		}
		sb.WriteByte(base36[n.Int64()])
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), sb.String()), nil
}
