// Package util provides utility functions for the Healora application.
package util

import (
	"math/rand/v2"
	"strings"
)

// GenerateRandomID generates a random ID with the specified prefix and hex length.
// The returned ID will be in the format: "{prefix}{hex_string}".
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateRandomHex generates a random hexadecimal string of the specified length.
func GenerateRandomHex(length int) string {
	return randomFrom("0123456789abcdef", length)
}

// GenerateRandomLower generates a random string of lowercase ASCII letters.
func GenerateRandomLower(length int) string {
	return randomFrom("abcdefghijklmnopqrstuvwxyz", length)
}

// GenerateSessionID generates a unique session ID with "s_" prefix.
func GenerateSessionID() string {
	return GenerateRandomID("s_", 32)
}

// GenerateMeetingCode returns a code shaped like "abc-defg-hij".
func GenerateMeetingCode() string {
	return GenerateRandomLower(3) + "-" + GenerateRandomLower(4) + "-" + GenerateRandomLower(3)
}

func randomFrom(alphabet string, length int) string {
	if length <= 0 {
		return ""
	}
	var builder strings.Builder
	builder.Grow(length)
	for i := 0; i < length; i++ {
		builder.WriteByte(alphabet[rand.IntN(len(alphabet))])
	}
	return builder.String()
}
