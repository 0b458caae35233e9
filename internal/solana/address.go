package solana

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Address validation errors.
var (
	ErrEmptyAddress  = errors.New("empty address")
	ErrInvalidBase58 = errors.New("address is not valid base58")
	ErrInvalidLength = errors.New("address does not decode to 32 bytes")
)

// ValidateAddress checks that a string is a plausible Solana wallet
// address: base58 with a 32-byte decoding. Off-curve addresses are
// accepted since program-derived addresses are valid account owners.
func ValidateAddress(addr string) error {
	if addr == "" {
		return ErrEmptyAddress
	}

	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBase58, err)
	}
	if len(decoded) != 32 {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidLength, len(decoded))
	}
	return nil
}

// IsOnCurve reports whether an address is an ed25519 curve point, i.e. a
// keypair-derived wallet rather than a program-derived address.
func IsOnCurve(addr string) bool {
	decoded, err := base58.Decode(addr)
	if err != nil || len(decoded) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}
