package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	LowerAlphanumeric = "abcdefghijklmnopqrstuvwxyz0123456789"
	MixedAlphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	DefaultSlugLength = 10
	QRIDLength        = 12
	eventSuffixLength = 6
	maxSlugPrefix     = 32
)

var (
	nonSlug   = regexp.MustCompile(`[^a-z0-9\-]+`)
	multiDash = regexp.MustCompile(`-+`)
)

// GenerateSlug draws length symbols uniformly, with replacement, from alphabet.
// Uniqueness is not checked here; callers rely on the unique index and retry.
func GenerateSlug(length int, alphabet string) (string, error) {
	if length <= 0 {
		length = DefaultSlugLength
	}
	if alphabet == "" {
		alphabet = LowerAlphanumeric
	}

	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate slug: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

// GenerateQRID returns a public certificate identifier.
func GenerateQRID() (string, error) {
	return GenerateSlug(QRIDLength, MixedAlphanumeric)
}

// SlugPrefix normalizes a human name into a URL-safe prefix.
// Example: "NYCC 2025: Artist Alley!" -> "nycc-2025-artist-alley"
func SlugPrefix(name string) string {
	base := strings.ToLower(strings.TrimSpace(name))
	base = strings.ReplaceAll(base, " ", "-")
	base = nonSlug.ReplaceAllString(base, "")
	base = multiDash.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")

	if len(base) > maxSlugPrefix {
		base = strings.Trim(base[:maxSlugPrefix], "-")
	}
	if base == "" {
		base = "event"
	}
	return base
}

// EventSlug is the public slug for an event: name prefix plus a random suffix.
func EventSlug(name string) (string, error) {
	suffix, err := GenerateSlug(eventSuffixLength, LowerAlphanumeric)
	if err != nil {
		return "", err
	}
	return SlugPrefix(name) + "-" + suffix, nil
}

// GenerateUUID creates a random UUID v4 row identifier.
func GenerateUUID() string {
	return uuid.NewString()
}
