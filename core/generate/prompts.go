package generate

import (
	"fmt"
	"strings"

	"github.com/averix/groundling/model"
)

const groundedSystemMessage = `You answer questions strictly from the numbered source ` +
	`passages provided. Cite every fact you use with its inline marker, e.g. [Source 2]. ` +
	`If the passages do not contain the answer, say so plainly. Never invent sources.`

const noContextSystemMessage = `You answer general questions without any supporting ` +
	`documents. State clearly that no corpus passages were available and that the answer ` +
	`comes from general knowledge. Do not fabricate citations.`

var detailInstructions = map[model.DetailLevel]string{
	model.DetailBasic:    "Answer concisely in one or two paragraphs.",
	model.DetailDetailed: "Answer thoroughly, covering relevant context from the sources.",
	model.DetailDebug:    "Answer thoroughly and, after the answer, list which source each statement came from.",
}

// buildGroundedPrompt embeds numbered passage excerpts so citation usage
// is mechanically countable afterward.
func buildGroundedPrompt(query string, passages []*model.RetrievedPassage, detail model.DetailLevel) string {
	var b strings.Builder
	b.WriteString("Source passages:\n\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[Source %d]", i+1)
		if p.Section != "" {
			fmt.Fprintf(&b, " (%s)", p.Section)
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(p.Text))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Question: %s\n\n%s", query, detailInstructions[detail])
	return b.String()
}

func buildNoContextPrompt(query string, detail model.DetailLevel) string {
	return fmt.Sprintf("Question: %s\n\n%s", query, detailInstructions[detail])
}
