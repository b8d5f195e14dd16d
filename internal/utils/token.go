package utils

import (
	"crypto/rand"
	"math/big"
)

// tokenAlphabet is the character set for booking countermark tokens.
// Ambiguous glyphs (0/O, 1/I/L) are excluded because tokens are read
// aloud or typed by pros at the venue.
const tokenAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// TokenLength is the fixed length of a booking countermark.
const TokenLength = 6

// NewBookingToken returns a random 6-character countermark.  Uniqueness
// is not guaranteed here; the booking repository retries on collision.
func NewBookingToken() (string, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	buf := make([]byte, TokenLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = tokenAlphabet[n.Int64()]
	}
	return string(buf), nil
}
