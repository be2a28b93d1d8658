package ai

import (
	"fmt"
	"strings"

	"github.com/eargai/earg-backend/internal/service/search"
)

// InsufficientMarker is the distinguished token the model is told to emit as
// the very first characters of its reply when it judges its own knowledge
// insufficient. The remainder of that reply is still its best attempt and is
// used verbatim when retrieval comes back empty.
const InsufficientMarker = "[NEEDS_SEARCH]"

const systemPrompt = `You are EARG, a confident AI assistant with a Jarvis-like personality.
Do NOT mention training data, knowledge cutoffs, or model limitations unless explicitly asked.
Answer clearly, concisely, and naturally.
If asked about current events, answer to the best of your knowledge without disclaimers.`

// SystemPrompt returns the base persona instructions.
func SystemPrompt() string {
	return systemPrompt
}

// ProbeSystemPrompt extends the persona with the confidence-probe
// instruction used on the first generation pass.
func ProbeSystemPrompt() string {
	return systemPrompt + fmt.Sprintf(`

If you judge your own knowledge insufficient to answer reliably, start your reply with the exact token %s followed by your best attempt anyway. Otherwise never emit that token.`, InsufficientMarker)
}

// AugmentedSystemPrompt extends the persona with retrieved context for the
// second generation pass. The model is told to blend its own reasoning with
// the context and to never mention that a search happened.
func AugmentedSystemPrompt(results []search.Result) string {
	var builder strings.Builder
	builder.WriteString(systemPrompt)
	builder.WriteString("\n\nBackground context:\n")
	for _, result := range results {
		builder.WriteString("- ")
		if result.Source != "" {
			builder.WriteString(result.Source)
			builder.WriteString(": ")
		}
		builder.WriteString(result.Snippet)
		builder.WriteString("\n")
	}
	builder.WriteString("\nBlend your own reasoning with the background context above.")
	builder.WriteString(" Never mention the context, searching, or any sources unless the user explicitly asks.")
	return builder.String()
}
