package evidence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	t.Run("Should count four characters per token", func(t *testing.T) {
		assert.Equal(t, 25, EstimateTokens(strings.Repeat("a", 100)))
	})

	t.Run("Should count runes rather than bytes", func(t *testing.T) {
		assert.Equal(t, 2, EstimateTokens(strings.Repeat("証", 8)))
	})

	t.Run("Should floor non-empty text at one token", func(t *testing.T) {
		assert.Equal(t, 1, EstimateTokens("abc"))
	})

	t.Run("Should count empty text as zero", func(t *testing.T) {
		assert.Equal(t, 0, EstimateTokens(""))
	})
}
