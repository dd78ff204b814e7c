package components

import (
	"strings"

	"github.com/Rorical/RoriChat/internal/models"
	"github.com/Rorical/RoriChat/ui/styles"
)

const typingPlaceholder = "typing..."

// RenderMessages draws the transcript. While revealing is set the last
// message is still growing, so it is drawn as plain text.
func RenderMessages(messages []models.Message, revealing bool, md *Markdown) string {
	var b strings.Builder

	systemStyle := styles.SystemStyle()
	userStyle := styles.UserStyle()
	assistantStyle := styles.AssistantStyle()
	typingStyle := styles.TypingStyle()
	programStyle := styles.ProgramStyle()

	for i, msg := range messages {
		switch msg.Type {
		case models.System:
			b.WriteString(systemStyle.Render("System: "+msg.Content) + "\n\n")
		case models.User:
			b.WriteString(userStyle.Render("You: "+msg.Content) + "\n\n")
		case models.Assistant:
			switch {
			case msg.Typing:
				b.WriteString(typingStyle.Render("Assistant: "+typingPlaceholder) + "\n\n")
			case revealing && i == len(messages)-1:
				b.WriteString(assistantStyle.Render("Assistant: "+msg.Content) + "\n\n")
			default:
				b.WriteString(assistantStyle.Render("Assistant:\n"+md.Render(msg.Content)) + "\n\n")
			}
		case models.Program:
			b.WriteString(programStyle.Render(msg.Content) + "\n\n")
		}
	}

	return b.String()
}
