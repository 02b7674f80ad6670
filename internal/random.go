package internal

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

const (
	// SessionIDBytes is the size of a refresh-session identifier.
	SessionIDBytes = 16
	// ResetTokenBytes is the size of a password reset token.
	ResetTokenBytes = 32
)

var otpSpan = big.NewInt(900000)

// NewOTP returns a uniformly random six-digit code in [100000, 999999].
// The first digit is never zero, so the string length is stable.
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		return "", err
	}
	code := n.Int64() + 100000

	buf := make([]byte, 6)
	for i := 5; i >= 0; i-- {
		buf[i] = byte('0' + code%10)
		code /= 10
	}
	return string(buf), nil
}

// NewTokenHex returns size random bytes hex-encoded (2*size characters).
func NewTokenHex(size int) (string, error) {
	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
