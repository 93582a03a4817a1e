package answer

import (
	"fmt"
	"strings"

	"docsearch/internal/domain"
)

const unknown = "Unknown"

// FormatContext renders context records the way they are shown to the model.
func FormatContext(contexts []domain.ContextRecord) string {
	parts := make([]string, 0, len(contexts))
	for _, c := range contexts {
		parts = append(parts, fmt.Sprintf("Document: %s\nAuthor: %s\nDate: %s\nContent: %s",
			c.Title, orUnknown(c.Author), orUnknown(c.Date), c.ChunkText))
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt returns the single user message sent to a language model.
func BuildPrompt(question string, contexts []domain.ContextRecord) string {
	return fmt.Sprintf(`You are a helpful assistant that answers questions based on the provided document context.
Please answer the following question using only the information provided in the context.
If the context doesn't contain enough information to answer the question, say so.

Context:
%s

Question: %s

Please provide a clear, concise answer based on the context provided.`, FormatContext(contexts), question)
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
