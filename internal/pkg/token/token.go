package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	dynamicCodeMin  = 100000
	dynamicCodeSpan = 900000 // codes are in [100000, 999999]
)

// NewDynamicCode returns a uniformly random six-digit code read from crypto/rand.
func NewDynamicCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(dynamicCodeSpan))
	if err != nil {
		return "", fmt.Errorf("generate dynamic code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+dynamicCodeMin), nil
}
