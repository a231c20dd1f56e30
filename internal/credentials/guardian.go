package credentials

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// PINLength is the number of digits in a guardian PIN
const PINLength = 4

var ErrInvalidPIN = errors.New("PIN must be exactly 4 digits")

// ValidatePIN checks the format used at onboarding. Verification never normalizes.
func ValidatePIN(pin string) error {
	if len(pin) != PINLength {
		return ErrInvalidPIN
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

// PINMatches reports exact equality in constant time
func PINMatches(stored, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}

// FaceDigest returns a short hex fingerprint of the reference image, safe to expose.
func FaceDigest(image []byte) string {
	if len(image) == 0 {
		return ""
	}
	sum := blake2b.Sum256(image)
	return hex.EncodeToString(sum[:8])
}
