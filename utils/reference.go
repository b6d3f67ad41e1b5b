package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NewBookingReference generates a booking reference: four digits, one
// lowercase letter, one digit (e.g. "4821f3").
func NewBookingReference() string {
	digits := make([]byte, 5)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			// crypto/rand failing is unrecoverable for reference generation.
			panic(fmt.Sprintf("booking reference: %v", err))
		}
		digits[i] = byte('0' + n.Int64())
	}
	l, err := rand.Int(rand.Reader, big.NewInt(26))
	if err != nil {
		panic(fmt.Sprintf("booking reference: %v", err))
	}
	letter := byte('a' + l.Int64())
	return fmt.Sprintf("%s%c%c", digits[:4], letter, digits[4])
}
