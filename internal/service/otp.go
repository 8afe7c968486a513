package service

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"

	"company-wallet/internal/core/domain"
)

var otpSpace = big.NewInt(1_000_000)

// generateOTP returns a uniformly random, zero-padded 6-digit code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", domain.OTPLength, n.Int64()), nil
}

// otpMatches compares in constant time.
func otpMatches(expected, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(submitted)) == 1
}
