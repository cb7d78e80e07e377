package utils_test

import (
	"strings"
	"testing"

	"coa-registry/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSlug_LengthAndAlphabet(t *testing.T) {
	slug, err := utils.GenerateSlug(16, "ab")
	require.NoError(t, err)
	assert.Len(t, slug, 16)
	assert.Empty(t, strings.Trim(slug, "ab"))
}

func TestGenerateSlug_Defaults(t *testing.T) {
	slug, err := utils.GenerateSlug(0, "")
	require.NoError(t, err)
	assert.Len(t, slug, utils.DefaultSlugLength)
	for _, c := range slug {
		assert.Contains(t, utils.LowerAlphanumeric, string(c))
	}
}

func TestGenerateSlug_NoCollisions(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		slug, err := utils.GenerateSlug(10, utils.LowerAlphanumeric)
		require.NoError(t, err)
		_, dup := seen[slug]
		require.False(t, dup, "duplicate slug %s after %d draws", slug, i)
		seen[slug] = struct{}{}
	}
}

func TestGenerateQRID(t *testing.T) {
	id, err := utils.GenerateQRID()
	require.NoError(t, err)
	assert.Len(t, id, utils.QRIDLength)
	for _, c := range id {
		assert.Contains(t, utils.MixedAlphanumeric, string(c))
	}
}

func TestSlugPrefix(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"punctuation", "NYCC 2025: Artist Alley!", "nycc-2025-artist-alley"},
		{"collapses dashes", "  a -- b  ", "a-b"},
		{"empty falls back", "!!!", "event"},
		{"truncated", strings.Repeat("abc ", 20), "abc-abc-abc-abc-abc-abc-abc-abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := utils.SlugPrefix(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), 32)
		})
	}
}

func TestEventSlug(t *testing.T) {
	slug, err := utils.EventSlug("Comic Con")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(slug, "comic-con-"))
	assert.Len(t, slug, len("comic-con-")+6)
}

func TestGenerateUUID(t *testing.T) {
	a, b := utils.GenerateUUID(), utils.GenerateUUID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
