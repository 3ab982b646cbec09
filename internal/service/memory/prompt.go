package memory

import (
	"strings"

	"github.com/beesandtrees/ocean-breeze-chat/internal/core"
)

// DefaultInstructions is the suffix appended to the assembled memory
// context telling the model how to use its memories in character.
const DefaultInstructions = "When the user references past conversations, try to recall these memories naturally. " +
	"You don't need to mention explicitly that you're using your 'memory system' - " +
	"just incorporate these memories naturally into the conversation as a human would. " +
	"If you don't remember something specific, it's okay to say so, just as humans sometimes forget.\n\n" +
	"Important: You should only reference these memories when relevant to the current conversation. " +
	"Don't bring them up unnecessarily."

// buildSystemContext renders the tiered memories into the text block that
// precedes the persona's own system prompt.
func buildSystemContext(recent []core.MemorySummary, longTerm []core.MemoryBrief, instructions string) string {
	var b strings.Builder
	b.WriteString("You have memories of previous conversations with this user:\n\n")

	if len(recent) > 0 {
		b.WriteString("Recent conversations:\n")
		for _, m := range recent {
			b.WriteString("- ")
			b.WriteString(m.Summary)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if len(longTerm) > 0 {
		b.WriteString("Older conversations you recall less clearly:\n")
		for _, m := range longTerm {
			b.WriteString("- ")
			b.WriteString(m.Brief)
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	b.WriteString(instructions)
	return b.String()
}
