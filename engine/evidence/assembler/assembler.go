package assembler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/auditcortex/auditcortex/engine/evidence"
	"github.com/auditcortex/auditcortex/pkg/logger"
)

// Assembler renders ranked candidates into a single token-budgeted context
// block for the downstream generative call. Sections are included whole or
// not at all; assembly stops at the first section that would exceed the
// budget.
type Assembler struct {
	maxTokens int
}

func New(maxTokens int) (*Assembler, error) {
	if maxTokens <= 0 {
		return nil, errors.New("assembler: max tokens must be greater than zero")
	}
	return &Assembler{maxTokens: maxTokens}, nil
}

// Assemble renders one formatted section per candidate in rank order.
func (a *Assembler) Assemble(ctx context.Context, contexts []evidence.RetrievedContext) string {
	if len(contexts) == 0 {
		return ""
	}
	builder := strings.Builder{}
	used := 0
	included := 0
	for i := range contexts {
		section := renderSection(i+1, &contexts[i])
		tokens := evidence.EstimateTokens(section)
		if used+tokens > a.maxTokens {
			logger.FromContext(ctx).Debug(
				"Context budget reached during assembly",
				"included", included, "candidates", len(contexts), "budget_tokens", a.maxTokens,
			)
			break
		}
		builder.WriteString(section)
		used += tokens
		included++
	}
	return strings.TrimRight(builder.String(), "\n")
}

func renderSection(rank int, rc *evidence.RetrievedContext) string {
	title := rc.SourceTitle
	if title == "" {
		title = "Untitled source"
	}
	docType := rc.SourceType
	if docType == "" {
		docType = "document"
	}
	return fmt.Sprintf(
		"[%d] %s (%s) - relevance %.0f%%\n%s\n\n",
		rank, title, docType, rc.Score*100, rc.Content,
	)
}

