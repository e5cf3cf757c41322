package otpauth

import "errors"

var (
	ErrNotAnOtpURI            = errors.New("not an otpauth uri")
	ErrUnsupportedType        = errors.New("unsupported otp type")
	ErrMissingOrInvalidSecret = errors.New("missing or invalid secret")
	ErrInvalidPeriod          = errors.New("invalid period")
	ErrInvalidDigits          = errors.New("invalid digits")
	ErrInvalidAlgorithm       = errors.New("invalid algorithm")
	ErrInvalidCounter         = errors.New("invalid counter")
	ErrInvalidLabel           = errors.New("account with a single ':' cannot be written as a label")
)
