package optimizer

import "strings"

const systemPrompt = `You are an expert prompt engineer. You rewrite prompts so that a large language model
follows them more reliably. Keep the author's intent, language, and any placeholders intact.
Make instructions explicit, remove ambiguity, and state the desired output format when it is implied.
Reply with the improved prompt only, without commentary or surrounding quotes.`

// BuildOptimizationPrompt returns the fixed instruction pair sent to every vendor.
func BuildOptimizationPrompt(promptText string) (system, user string) {
	var b strings.Builder
	b.WriteString("Improve the following prompt.\n\n")
	b.WriteString("<prompt>\n")
	b.WriteString(strings.TrimSpace(promptText))
	b.WriteString("\n</prompt>")
	return systemPrompt, b.String()
}
