package update

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriChat/internal/eventbus"
	"github.com/Rorical/RoriChat/internal/models"
)

func HandleUpdateWithEventBus(appModel *models.AppModel, msg tea.Msg, eb *eventbus.EventBus) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return HandleKeyMsgWithEventBus(appModel, msg, eb)
	case tea.WindowSizeMsg:
		HandleWindowSizeMsg(appModel, msg)
		return nil
	case TickMsg:
		return HandleTickMsg(appModel)
	case CoreEventMsg:
		return HandleCoreEvent(appModel, msg)
	}

	// Cursor blink and other widget messages
	var cmd tea.Cmd
	if appModel.Dialog.Open {
		appModel.PromptEditor, cmd = appModel.PromptEditor.Update(msg)
	} else {
		appModel.Input, cmd = appModel.Input.Update(msg)
	}
	return cmd
}
