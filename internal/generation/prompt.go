package generation

import (
	"fmt"
	"strings"
)

// buildPrompt asks for the fixed {name, description, isValid} shape.
// The context window helps the model name the depicted object; slides
// rarely caption their own figures.
func buildPrompt(contextText, language string) string {
	var b strings.Builder
	b.WriteString("You are looking at a figure extracted from lecture slides. ")
	b.WriteString("Identify the single object or concept it depicts and answer in ")
	b.WriteString(language)
	b.WriteString(".\n\n")
	if contextText != "" {
		b.WriteString("Text surrounding the figure in the deck:\n")
		b.WriteString(contextText)
		b.WriteString("\n\n")
	}
	b.WriteString(`Respond with JSON only: {"name": "<short name>", "description": "<one or two sentences>", "isValid": <false if this image is decoration, a logo, a bullet or otherwise not a meaningful figure>}`)
	return b.String()
}

// textOnlyPrompt is the degraded fallback for backends that reject
// multimodal payloads.
func textOnlyPrompt(contextText, language string) string {
	return fmt.Sprintf("The image could not be transmitted. Based only on this surrounding slide text, name the most likely depicted object and answer in %s.\n\n%s\n\nRespond with JSON only: {\"name\": \"...\", \"description\": \"...\", \"isValid\": true}", language, contextText)
}
