package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateOTP generates a 6-digit zero-padded OTP from a cryptographically
// secure source. The OTP gates account takeover, so math/rand is off-limits.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}

	// zero-pad: rand.Int can return e.g. 68706, which must become "068706"
	return fmt.Sprintf("%06d", n.Int64()), nil
}
