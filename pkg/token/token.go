// Package token encodes arbitrary strings into filename-safe tokens.
//
// Strings made only of ASCII letters and digits pass through unchanged.
// Anything else is wrapped in parentheses with offending characters
// hex-escaped, so the token stays legible while remaining safe in file
// names. Code points above 255 cannot be represented and collapse to a
// fixed sentinel byte; for such inputs the encoding is lossy.
package token

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// sentinelByte replaces code points above 255 (inverted question mark).
const sentinelByte = 0xa8

var (
	nonAlnum  = regexp.MustCompile(`[^a-zA-Z0-9]`)
	escapable = regexp.MustCompile(`[^a-zA-Z0-9_\-. ]`)
	hexEscape = regexp.MustCompile(`0x[a-fA-F0-9]{2}`)
)

// Encode converts s into a filename-safe token. If s contains any
// character outside [A-Za-z0-9], the escaped form is wrapped in
// parentheses; within it, literal "0x" sequences are doubled first so
// the escape marker itself survives a round trip, then every character
// outside [A-Za-z0-9_-. ] becomes "0x" plus its two-digit lowercase
// hex code point.
func Encode(s string) string {
	if !nonAlnum.MatchString(s) {
		return s
	}
	s = strings.ReplaceAll(s, "0x", "0xx")
	s = escapable.ReplaceAllStringFunc(s, func(c string) string {
		r := []rune(c)[0]
		if r > 255 {
			r = sentinelByte
		}
		return fmt.Sprintf("0x%02x", r)
	})
	return "(" + s + ")"
}

// Decode reverses Encode. Tokens not starting with "(" are returned
// unchanged. Within a parenthesized token each "0xHH" escape becomes
// its character, then the "0xx" doubling is undone.
func Decode(token string) string {
	if !strings.HasPrefix(token, "(") {
		return token
	}
	s := strings.TrimSuffix(strings.TrimPrefix(token, "("), ")")
	s = hexEscape.ReplaceAllStringFunc(s, func(esc string) string {
		code, err := strconv.ParseUint(esc[2:], 16, 16)
		if err != nil {
			return esc
		}
		return string(rune(code))
	})
	return strings.ReplaceAll(s, "0xx", "0x")
}
