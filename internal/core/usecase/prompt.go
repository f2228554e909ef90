package usecase

import (
	"fmt"
	"strings"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
)

const DefaultHistoryMessages = 4

const groundedTemplate = `Please help me understand the webpage content and answer the question. Feel free to provide insights, interpretations, or additional context beyond the literal text.

%s
Webpage Context: %s

Current Question: %s

Guidance:
- Provide a comprehensive and thoughtful response
- Draw connections and insights where possible
- If the context is limited, supplement with relevant background knowledge`

const openTemplate = `I'm seeking insights on the following question. While no specific context is provided, please offer a helpful and informative response.

%s
Current Question: %s

Guidance:
- Provide a detailed and nuanced answer
- Feel free to draw from general knowledge
- If relevant, suggest ways to find more specific information`

// PromptFormatter renders the single LLM prompt for a question. It is pure:
// equal inputs always give an equal prompt.
type PromptFormatter struct {
	historyMessages int
}

// NewPromptFormatter keeps the last historyMessages messages; a negative
// value selects the default window of 4.
func NewPromptFormatter(historyMessages int) *PromptFormatter {
	if historyMessages < 0 {
		historyMessages = DefaultHistoryMessages
	}
	return &PromptFormatter{historyMessages: historyMessages}
}

func (f *PromptFormatter) Format(question string, passages []domain.RetrievedPassage, history []domain.Message) (string, domain.PromptMode) {
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Text)
	}
	contextText := strings.Join(texts, "\n\n")
	historyText := f.renderHistory(history)

	if strings.TrimSpace(contextText) != "" {
		return fmt.Sprintf(groundedTemplate, historyText, contextText, question), domain.PromptModeGrounded
	}
	return fmt.Sprintf(openTemplate, historyText, question), domain.PromptModeOpen
}

func (f *PromptFormatter) renderHistory(history []domain.Message) string {
	if len(history) == 0 || f.historyMessages == 0 {
		return ""
	}
	if len(history) > f.historyMessages {
		history = history[len(history)-f.historyMessages:]
	}

	var b strings.Builder
	b.WriteString("Previous conversation:\n")
	for _, msg := range history {
		role := "Assistant"
		if msg.Role == domain.RoleUser {
			role = "User"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, msg.Content)
	}
	return b.String()
}
