// Package biometric compares a registered guardian face against a live probe.
package biometric

import (
	"context"
	"errors"
)

// ErrOracleUnavailable is returned when the comparison could not be made at all.
// A negative verdict is not an error.
var ErrOracleUnavailable = errors.New("biometric oracle unavailable")

// Image is an encoded still frame.
type Image struct {
	Data     []byte
	MIMEType string
}

// Empty reports whether there is nothing to compare.
func (i Image) Empty() bool {
	return len(i.Data) == 0
}

// Result is the oracle's verdict on whether two images show the same person.
type Result struct {
	Match      bool    `json:"match"`
	Confidence float64 `json:"confidence"`
}

// Oracle compares a reference image against a probe.
type Oracle interface {
	Compare(ctx context.Context, reference, probe Image) (Result, error)
}

// OracleFunc adapts a plain function to the Oracle interface.
type OracleFunc func(ctx context.Context, reference, probe Image) (Result, error)

func (f OracleFunc) Compare(ctx context.Context, reference, probe Image) (Result, error) {
	return f(ctx, reference, probe)
}
