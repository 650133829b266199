package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		input string
		want  Policy
	}{
		{"", PolicyDefault},
		{"default", PolicyDefault},
		{"use-cache", PolicyUseCache},
		{"cache-only", PolicyCacheOnly},
	}

	for _, tc := range tests {
		t.Run("input "+tc.input, func(t *testing.T) {
			got, err := ParsePolicy(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("unknown mode", func(t *testing.T) {
		_, err := ParsePolicy("always")
		assert.Error(t, err)
	})
}

func TestPolicyReadsCache(t *testing.T) {
	assert.False(t, PolicyDefault.ReadsCache())
	assert.True(t, PolicyUseCache.ReadsCache())
	assert.True(t, PolicyCacheOnly.ReadsCache())
}
