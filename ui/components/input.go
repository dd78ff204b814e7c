package components

import (
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/Rorical/RoriChat/ui/styles"
)

func RenderInput(input textinput.Model, width int) string {
	return styles.InputStyle(width).Render(input.View())
}
