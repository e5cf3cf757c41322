package otp

import (
	"fmt"
	"strconv"
	"strings"
)

// Renderer turns a truncated 31-bit HMAC value into a displayable code.
type Renderer interface {
	Render(v uint32, digits int) string
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(v uint32, digits int) string

func (f RendererFunc) Render(v uint32, digits int) string { return f(v, digits) }

var pow10 = [...]uint64{
	1, 10, 100, 1_000, 10_000, 100_000, 1_000_000,
	10_000_000, 100_000_000, 1_000_000_000, 10_000_000_000,
}

// Decimal is the RFC 4226 rendering: v mod 10^digits, zero-padded.
var Decimal Renderer = RendererFunc(func(v uint32, digits int) string {
	return fmt.Sprintf("%0*d", digits, uint64(v)%pow10[digits])
})

const steamAlphabet = "23456789BCDFGHJKMNPQRTVWXY"

// SteamLength is the fixed length of Steam Guard codes.
const SteamLength = 5

// Steam renders Steam Guard codes. The digits argument is ignored; Steam
// codes are always five characters.
var Steam Renderer = RendererFunc(func(v uint32, _ int) string {
	var b strings.Builder
	b.Grow(SteamLength)
	n := uint32(len(steamAlphabet))
	for range SteamLength {
		b.WriteByte(steamAlphabet[v%n])
		v /= n
	}
	return b.String()
})

// Hex renders the truncated value in lowercase hexadecimal, keeping the
// right-most digits characters and zero-padding shorter values.
var Hex Renderer = RendererFunc(func(v uint32, digits int) string {
	s := strconv.FormatUint(uint64(v), 16)
	if len(s) > digits {
		return s[len(s)-digits:]
	}
	return strings.Repeat("0", digits-len(s)) + s
})
