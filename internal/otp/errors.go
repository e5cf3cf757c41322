package otp

import "errors"

var (
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")
	ErrInvalidParameter     = errors.New("invalid otp parameter")
)
