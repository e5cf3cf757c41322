// Package otpauth parses and builds Key URIs of the form
//
//	otpauth://TYPE/LABEL?secret=BASE32&issuer=...&algorithm=SHA1&digits=6&period=30&counter=0
//
// as produced by QR enrolment codes. Parsing is a single validating pass;
// every rejected input maps to one sentinel error of this package.
//
// When the issuer appears both in the label ("Issuer:account") and in the
// query string, the query parameter wins.
package otpauth

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/otpkeeper/internal/base32x"
	"github.com/dmitrijs2005/otpkeeper/internal/otp"
)

const (
	Scheme    = "otpauth"
	prefix    = Scheme + "://"
	MaxPeriod = 300
)

// Type is the otpauth authority segment.
type Type string

const (
	TypeTOTP Type = "totp"
	TypeHOTP Type = "hotp"
)

// Descriptor is the validated content of an otpauth URI.
type Descriptor struct {
	Type      Type
	Issuer    string
	Account   string
	Secret    string // canonical Base32: uppercase, no padding
	Period    uint32
	Digits    int
	Algorithm otp.Algorithm
	Counter   uint64
}

// String omits the secret.
func (d Descriptor) String() string {
	return fmt.Sprintf("%s %s:%s (%s, %d digits)", d.Type, d.Issuer, d.Account, d.Algorithm, d.Digits)
}

// Parse validates raw and returns its descriptor.
func Parse(raw string) (*Descriptor, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, prefix) {
		return nil, ErrNotAnOtpURI
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme != Scheme {
		return nil, ErrNotAnOtpURI
	}

	d := &Descriptor{
		Type:      Type(u.Host),
		Period:    otp.DefaultPeriod,
		Digits:    otp.DefaultDigits,
		Algorithm: otp.SHA1,
	}
	if d.Type != TypeTOTP && d.Type != TypeHOTP {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, u.Host)
	}

	// u.Path is already percent-decoded
	label := strings.TrimPrefix(u.Path, "/")
	if strings.Count(label, ":") == 1 {
		issuer, account, _ := strings.Cut(label, ":")
		d.Issuer = strings.TrimSpace(issuer)
		d.Account = strings.TrimSpace(account)
	} else {
		d.Account = label
	}

	q := u.Query()

	secret, err := base32x.Normalize(q.Get("secret"))
	if err != nil {
		return nil, ErrMissingOrInvalidSecret
	}
	d.Secret = secret

	if v := strings.TrimSpace(q.Get("issuer")); v != "" {
		d.Issuer = v
	}

	if v := q.Get("period"); v != "" {
		p, err := strconv.ParseUint(v, 10, 32)
		if err != nil || p == 0 || p > MaxPeriod {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, v)
		}
		d.Period = uint32(p)
	}

	if v := q.Get("digits"); v != "" {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil || n < otp.MinDigits || n > otp.MaxDigits {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDigits, v)
		}
		d.Digits = int(n)
	}

	if v := q.Get("algorithm"); v != "" {
		alg, err := otp.ParseAlgorithm(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAlgorithm, v)
		}
		d.Algorithm = alg
	}

	v, hasCounter := q["counter"]
	switch {
	case hasCounter && len(v) > 0 && v[0] != "":
		c, err := strconv.ParseUint(v[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCounter, v[0])
		}
		d.Counter = c
	case d.Type == TypeHOTP:
		return nil, fmt.Errorf("%w: hotp requires a counter", ErrInvalidCounter)
	}

	return d, nil
}

// CheckAccount rejects accounts Parse would split into issuer and account.
func CheckAccount(account string) error {
	if strings.Count(account, ":") == 1 {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, account)
	}
	return nil
}

// Format builds the otpauth URI for d. Parse(Format(d)) yields d back when
// the account passes CheckAccount and neither field has surrounding spaces.
// The label carries the issuer prefix only when neither field contains ':';
// otherwise the issuer travels in the query alone.
func Format(d Descriptor) string {
	label := url.PathEscape(d.Account)
	if d.Issuer != "" && !strings.Contains(d.Issuer, ":") && !strings.Contains(d.Account, ":") {
		label = url.PathEscape(d.Issuer) + ":" + label
	}

	q := url.Values{}
	q.Set("secret", d.Secret)
	if d.Issuer != "" {
		q.Set("issuer", d.Issuer)
	}
	q.Set("algorithm", d.Algorithm.String())
	q.Set("digits", strconv.Itoa(d.Digits))
	if d.Type == TypeHOTP {
		q.Set("counter", strconv.FormatUint(d.Counter, 10))
	} else {
		q.Set("period", strconv.FormatUint(uint64(d.Period), 10))
	}

	return prefix + string(d.Type) + "/" + label + "?" + q.Encode()
}
