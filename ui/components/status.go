package components

import (
	"fmt"
	"strings"

	"github.com/Rorical/RoriChat/internal/models"
	"github.com/Rorical/RoriChat/ui/styles"
)

func RenderStatus(m models.AppModel) string {
	statusContent := m.Status
	if m.Loading() {
		statusContent += strings.Repeat(".", m.LoadingDots)
	}
	if m.Role != "" {
		statusContent += fmt.Sprintf("  |  role: %s", m.Role)
	}
	if m.SessionID != "" {
		statusContent += fmt.Sprintf("  |  session: %s", shortID(m.SessionID))
	}
	if m.Notice != "" {
		statusContent += "  |  " + m.Notice
	}

	if strings.HasPrefix(m.Status, "Error") {
		return styles.StatusErrorStyle(m.Width).Render(statusContent)
	}
	return styles.StatusStyle(m.Width).Render(statusContent)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
