package models

import (
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
)

// PromptDialog is the system prompt editor state owned by the core.
type PromptDialog struct {
	Open  bool
	Draft string // text to seed the editor with when it opens
	Alert string // blocking notice; must be dismissed before editing on
}

// AppModel represents the UI state - only local UI concerns
type AppModel struct {
	Messages         []Message       // Current messages to display
	Phase            Phase           // Exchange phase from core
	Status           string          // Status bar text
	Notice           string          // Transient hint shown next to the status
	Role             string          // Role tag sent with each request
	SessionID        string          // Conversation id as known to the core
	Dialog           PromptDialog    // Prompt editor state from core
	Input            textinput.Model // Chat input line
	PromptEditor     textarea.Model  // System prompt editor
	Transcript       viewport.Model  // Scrollable message area
	LoadingDots      int             // Animation counter for loading dots
	Width            int             // Terminal width
	Height           int             // Terminal height
	ChatServiceReady bool            // Whether a backend is configured
}

func NewAppModel(ready bool) AppModel {
	input := textinput.New()
	input.Placeholder = "Type a message and press Enter"
	input.Prompt = "> "
	input.CharLimit = 4096
	input.Focus()

	editor := textarea.New()
	editor.Placeholder = "System prompt"
	editor.ShowLineNumbers = false
	editor.CharLimit = 8192

	return AppModel{
		Messages:         make([]Message, 0),
		Status:           "Ready",
		Input:            input,
		PromptEditor:     editor,
		Transcript:       viewport.New(80, 20),
		ChatServiceReady: ready,
	}
}

func (m AppModel) Loading() bool {
	return m.Phase.Busy()
}
