package solana

import (
	"errors"
	"testing"
)

func TestValidateAddress(t *testing.T) {
	cases := []struct {
		name    string
		addr    string
		wantErr error
	}{
		{"valid system program", "11111111111111111111111111111111", nil},
		{"valid token program", TokenProgramID, nil},
		{"valid wsol mint", "So11111111111111111111111111111111111111112", nil},
		{"empty", "", ErrEmptyAddress},
		{"invalid characters", "0OIl+/=", ErrInvalidBase58},
		{"too short", "abc", ErrInvalidLength},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateAddress(tc.addr)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestIsOnCurve(t *testing.T) {
	// The system program address decodes to 32 zero bytes, the identity
	// encoding, which is a valid curve point.
	if !IsOnCurve("11111111111111111111111111111111") {
		t.Error("expected system program address on curve")
	}

	if IsOnCurve("") || IsOnCurve("abc") {
		t.Error("malformed addresses are never on curve")
	}
}
