package app

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriChat/internal/models"
	"github.com/Rorical/RoriChat/internal/update"
	"github.com/Rorical/RoriChat/ui/components"
)

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(
		update.TickCmd(),
		textinput.Blink,
		m.dispatcher.ListenForUIEvents(),
	)
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle core events and continue listening
	if coreEvent, ok := msg.(update.CoreEventMsg); ok {
		cmd := update.HandleCoreEvent(&m.appModel, coreEvent)
		m.refreshTranscript()
		return m, tea.Batch(cmd, m.dispatcher.ListenForUIEvents())
	}

	eventBus := m.dispatcher.GetEventBus()
	cmd := update.HandleUpdateWithEventBus(&m.appModel, msg, eventBus)
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.markdown.Resize(size.Width)
		m.refreshTranscript()
	}

	return m, cmd
}

// refreshTranscript redraws the messages and keeps the newest in view.
func (m *AppModel) refreshTranscript() {
	revealing := m.appModel.Phase == models.Typing
	m.appModel.Transcript.SetContent(components.RenderMessages(m.appModel.Messages, revealing, m.markdown))
	m.appModel.Transcript.GotoBottom()
}

func (m *AppModel) View() string {
	var b strings.Builder

	if m.appModel.Dialog.Open {
		b.WriteString(components.RenderPromptDialog(m.appModel))
	} else {
		b.WriteString(m.appModel.Transcript.View())
		b.WriteString("\n")
		b.WriteString(components.RenderInput(m.appModel.Input, m.appModel.Width))
	}
	b.WriteString("\n")
	b.WriteString(components.RenderStatus(m.appModel))

	return b.String()
}
