package components

import (
	"strings"

	"github.com/Rorical/RoriChat/internal/models"
	"github.com/Rorical/RoriChat/ui/styles"
)

// RenderPromptDialog draws the system prompt editor, with the blocking
// alert on top when one is pending.
func RenderPromptDialog(m models.AppModel) string {
	var b strings.Builder

	b.WriteString(styles.DialogTitleStyle().Render("System prompt") + "\n\n")
	b.WriteString(m.PromptEditor.View() + "\n\n")

	if m.Dialog.Alert != "" {
		b.WriteString(styles.AlertStyle().Render(m.Dialog.Alert) + "\n")
		b.WriteString(styles.HintStyle().Render("Enter or Esc to dismiss"))
	} else {
		b.WriteString(styles.HintStyle().Render("Ctrl+S save · Esc cancel"))
	}

	return styles.DialogStyle(m.Width).Render(b.String())
}
