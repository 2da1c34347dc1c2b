package assembler

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditcortex/auditcortex/engine/evidence"
)

func candidate(title string, score float64, contentLen int) evidence.RetrievedContext {
	return evidence.RetrievedContext{
		Content:     strings.Repeat("x", contentLen),
		SourceTitle: title,
		SourceType:  "policy",
		Score:       score,
	}
}

func TestNew(t *testing.T) {
	t.Run("Should reject a non-positive budget", func(t *testing.T) {
		_, err := New(0)
		require.Error(t, err)
		_, err = New(-10)
		require.Error(t, err)
	})
}

func TestAssemble(t *testing.T) {
	ctx := context.Background()

	t.Run("Should render numbered sections in rank order", func(t *testing.T) {
		asm, err := New(2000)
		require.NoError(t, err)
		block := asm.Assemble(ctx, []evidence.RetrievedContext{
			candidate("Access Policy", 0.92, 100),
			candidate("Scan Report", 0.81, 100),
		})
		assert.Contains(t, block, "[1] Access Policy (policy) - relevance 92%")
		assert.Contains(t, block, "[2] Scan Report (policy) - relevance 81%")
		assert.Less(t, strings.Index(block, "[1]"), strings.Index(block, "[2]"))
	})

	t.Run("Should stop at the first section exceeding the budget", func(t *testing.T) {
		asm, err := New(60)
		require.NoError(t, err)
		block := asm.Assemble(ctx, []evidence.RetrievedContext{
			candidate("First", 0.9, 120),
			candidate("Second", 0.8, 120),
			candidate("Third", 0.7, 40),
		})
		assert.Contains(t, block, "[1] First")
		assert.NotContains(t, block, "[2]")
		assert.NotContains(t, block, "[3]")
	})

	t.Run("Should never include a partial section", func(t *testing.T) {
		asm, err := New(40)
		require.NoError(t, err)
		block := asm.Assemble(ctx, []evidence.RetrievedContext{
			candidate("First", 0.9, 100),
			candidate("Second", 0.8, 600),
		})
		assert.Contains(t, block, strings.Repeat("x", 100))
		assert.NotContains(t, block, "[2]")
	})

	t.Run("Should return empty for no candidates", func(t *testing.T) {
		asm, err := New(100)
		require.NoError(t, err)
		assert.Empty(t, asm.Assemble(ctx, nil))
	})

	t.Run("Should return empty when even the first section overflows", func(t *testing.T) {
		asm, err := New(5)
		require.NoError(t, err)
		block := asm.Assemble(ctx, []evidence.RetrievedContext{candidate("First", 0.9, 400)})
		assert.Empty(t, block)
	})

	t.Run("Should label missing titles and types", func(t *testing.T) {
		asm, err := New(2000)
		require.NoError(t, err)
		block := asm.Assemble(ctx, []evidence.RetrievedContext{{Content: "body", Score: 0.5}})
		assert.Contains(t, block, "[1] Untitled source (document) - relevance 50%")
	})

	t.Run("Should trim trailing blank lines", func(t *testing.T) {
		asm, err := New(2000)
		require.NoError(t, err)
		block := asm.Assemble(ctx, []evidence.RetrievedContext{candidate("Only", 0.9, 20)})
		assert.False(t, strings.HasSuffix(block, "\n"))
	})
}
