package completion

import "strings"

// BuildPrompt lays out the single user message sent to the model.
func BuildPrompt(question, context string) string {
	var sb strings.Builder
	sb.Grow(len(context) + len(question) + 32)
	sb.WriteString("Context: ")
	sb.WriteString(context)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}
