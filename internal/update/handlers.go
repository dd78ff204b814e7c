package update

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Rorical/RoriChat/internal/eventbus"
	"github.com/Rorical/RoriChat/internal/models"
)

const busyNotice = "still replying, message kept"

// layout rows outside the transcript: input box (3) + status bar (1) + gap
const chromeHeight = 5

// HandleKeyMsgWithEventBus handles keyboard input using event bus
func HandleKeyMsgWithEventBus(appModel *models.AppModel, keyMsg tea.KeyMsg, eb *eventbus.EventBus) tea.Cmd {
	if keyMsg.Type == tea.KeyCtrlC {
		return tea.Quit
	}

	if appModel.Dialog.Open {
		return handleDialogKey(appModel, keyMsg, eb)
	}

	switch keyMsg.Type {
	case tea.KeyEnter:
		text := appModel.Input.Value()
		if strings.TrimSpace(text) == "" {
			return nil
		}
		if !appModel.ChatServiceReady {
			appModel.Input.Reset()
			appModel.Status = "Chat service not available"
			return nil
		}
		if appModel.Loading() {
			// Rejected; keep the text so nothing typed is lost.
			appModel.Notice = busyNotice
			return nil
		}
		if err := send(appModel, eb, eventbus.SendMessageEvent{Message: text}); err != nil {
			return nil
		}
		appModel.Notice = ""
		appModel.Input.Reset()
		return nil
	case tea.KeyCtrlP:
		send(appModel, eb, eventbus.OpenPromptDialogEvent{})
		return nil
	case tea.KeyCtrlR:
		send(appModel, eb, eventbus.CycleRoleEvent{})
		return nil
	case tea.KeyCtrlN:
		send(appModel, eb, eventbus.NewConversationEvent{})
		return nil
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		appModel.Transcript, cmd = appModel.Transcript.Update(keyMsg)
		return cmd
	}

	var cmd tea.Cmd
	appModel.Input, cmd = appModel.Input.Update(keyMsg)
	return cmd
}

func handleDialogKey(appModel *models.AppModel, keyMsg tea.KeyMsg, eb *eventbus.EventBus) tea.Cmd {
	// A pending alert blocks the editor until dismissed.
	if appModel.Dialog.Alert != "" {
		switch keyMsg.Type {
		case tea.KeyEnter, tea.KeyEsc:
			send(appModel, eb, eventbus.DismissAlertEvent{})
		}
		return nil
	}

	switch keyMsg.Type {
	case tea.KeyEsc:
		send(appModel, eb, eventbus.ClosePromptDialogEvent{})
		return nil
	case tea.KeyCtrlS:
		send(appModel, eb, eventbus.SavePromptEvent{Prompt: appModel.PromptEditor.Value()})
		return nil
	}

	var cmd tea.Cmd
	appModel.PromptEditor, cmd = appModel.PromptEditor.Update(keyMsg)
	return cmd
}

func send(appModel *models.AppModel, eb *eventbus.EventBus, event eventbus.UIEvent) error {
	if err := eb.SendToCore(event); err != nil {
		appModel.Status = "Error sending event: " + err.Error()
		return err
	}
	return nil
}

// CoreEventMsg wraps core events for Bubble Tea
type CoreEventMsg struct {
	Event eventbus.CoreEvent
}

// HandleCoreEvent processes events from the core
func HandleCoreEvent(appModel *models.AppModel, coreEventMsg CoreEventMsg) tea.Cmd {
	event, ok := coreEventMsg.Event.(eventbus.StateUpdateEvent)
	if !ok {
		return nil
	}

	appModel.Messages = event.Messages
	appModel.Phase = event.Phase
	appModel.Role = event.Role
	appModel.SessionID = event.SessionID
	if !appModel.Phase.Busy() {
		appModel.Notice = ""
	}

	var cmd tea.Cmd
	wasOpen := appModel.Dialog.Open
	appModel.Dialog = event.Dialog
	switch {
	case event.Dialog.Open && !wasOpen:
		appModel.PromptEditor.SetValue(event.Dialog.Draft)
		appModel.Input.Blur()
		cmd = appModel.PromptEditor.Focus()
	case !event.Dialog.Open && wasOpen:
		appModel.PromptEditor.Blur()
		cmd = appModel.Input.Focus()
	}

	switch {
	case event.Error != nil && !event.Phase.Busy():
		appModel.Status = "Error: " + event.Error.Error()
	case event.Phase == models.Sending:
		appModel.Status = "Sending"
	case event.Phase == models.AwaitingResponse:
		appModel.Status = "Waiting for reply"
	case event.Phase == models.Typing:
		appModel.Status = "Typing"
	default:
		appModel.Status = "Ready"
	}

	return cmd
}

type TickMsg time.Time

func TickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func HandleWindowSizeMsg(appModel *models.AppModel, sizeMsg tea.WindowSizeMsg) {
	appModel.Width = sizeMsg.Width
	appModel.Height = sizeMsg.Height
	appModel.Input.Width = max(sizeMsg.Width-8, 10)
	appModel.PromptEditor.SetWidth(max(sizeMsg.Width-14, 20))
	appModel.PromptEditor.SetHeight(max(sizeMsg.Height/3, 3))
	appModel.Transcript.Width = sizeMsg.Width
	appModel.Transcript.Height = max(sizeMsg.Height-chromeHeight, 1)
}

func HandleTickMsg(appModel *models.AppModel) tea.Cmd {
	// Only handle UI animations - loading dots
	if appModel.Loading() {
		appModel.LoadingDots = (appModel.LoadingDots + 1) % 4
	}
	return TickCmd()
}
