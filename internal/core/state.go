package core

import (
	"sync"

	"github.com/Rorical/RoriChat/internal/models"
	"github.com/Rorical/RoriChat/internal/transcript"
)

// ChatState manages the conversation state for event-driven architecture
type ChatState struct {
	mu              sync.RWMutex
	transcript      *transcript.Transcript // Single source of truth for the conversation
	programMessages []models.Message       // Program messages (welcome, controls)
	phase           phaseMachine
	lastError       error
	prompt          string // system prompt as last confirmed by the backend
	role            string
	dialog          models.PromptDialog
}

func NewChatState(role string) *ChatState {
	return &ChatState{
		transcript:      transcript.New(),
		programMessages: make([]models.Message, 0),
		role:            role,
	}
}

func (cs *ChatState) Phase() models.Phase {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.phase.Phase()
}

func (cs *ChatState) IsBusy() bool {
	return cs.Phase().Busy()
}

func (cs *ChatState) GetMessages() []models.Message {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.messagesLocked()
}

func (cs *ChatState) messagesLocked() []models.Message {
	result := make([]models.Message, 0, len(cs.programMessages)+cs.transcript.Len())
	result = append(result, cs.programMessages...)

	for _, msg := range cs.transcript.Messages() {
		m := models.Message{Content: msg.Text, Typing: msg.Typing}
		switch msg.Speaker {
		case transcript.User:
			m.Type = models.User
		case transcript.Assistant:
			m.Type = models.Assistant
		case transcript.System:
			m.Type = models.System
		}
		result = append(result, m)
	}
	return result
}

// Transcript returns a copy of the chat transcript without program messages.
func (cs *ChatState) Transcript() []transcript.Message {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.transcript.Messages()
}

func (cs *ChatState) GetLastError() error {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.lastError
}

func (cs *ChatState) Prompt() string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.prompt
}

func (cs *ChatState) SetPrompt(prompt string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.prompt = prompt
}

func (cs *ChatState) Role() string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.role
}

func (cs *ChatState) SetRole(role string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.role = role
}

func (cs *ChatState) Dialog() models.PromptDialog {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.dialog
}

// AddProgramMessage adds a program message (welcome screen, hints)
func (cs *ChatState) AddProgramMessage(content string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.programMessages = append(cs.programMessages, models.Message{
		Content: content,
		Type:    models.Program,
	})
}

func (cs *ChatState) AddSystemMessage(content string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.transcript.Append(transcript.System, content)
}

// Atomic operations for the exchange lifecycle

// BeginExchange admits a new exchange: it appends the user message and
// the typing placeholder and moves Idle → Sending. Returns ErrBusy and
// leaves everything untouched if an exchange is already running.
func (cs *ChatState) BeginExchange(content string) (int, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.phase.Phase().Busy() {
		return 0, ErrBusy
	}
	if err := cs.phase.To(models.Sending); err != nil {
		return 0, err
	}
	cs.lastError = nil
	cs.transcript.Append(transcript.User, content)
	return cs.transcript.AppendPlaceholder(), nil
}

func (cs *ChatState) MarkAwaitingResponse() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.phase.To(models.AwaitingResponse)
}

// BeginTyping swaps the placeholder for an empty assistant message.
func (cs *ChatState) BeginTyping(id int) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if err := cs.phase.To(models.Typing); err != nil {
		return err
	}
	return cs.transcript.Resolve(id, "")
}

func (cs *ChatState) SetReplyText(id int, text string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.transcript.SetText(id, text)
}

func (cs *ChatState) FinishTyping() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.phase.To(models.Idle)
}

// FailExchange rewrites the placeholder with text and enters Errored.
func (cs *ChatState) FailExchange(id int, text string, err error) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.lastError = err
	if terr := cs.transcript.Resolve(id, text); terr != nil {
		return terr
	}
	return cs.phase.To(models.Errored)
}

// Recover moves Errored → Idle.
func (cs *ChatState) Recover() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.phase.To(models.Idle)
}

// AbortExchange forces Idle when the service stops mid-exchange.
func (cs *ChatState) AbortExchange(id int) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if msg, ok := cs.transcript.Get(id); ok && msg.Typing {
		_ = cs.transcript.Resolve(id, msg.Text)
	}
	cs.phase.Reset()
}

// NewConversation drops the transcript; program messages stay.
func (cs *ChatState) NewConversation() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.phase.Phase().Busy() {
		return ErrBusy
	}
	cs.transcript = transcript.New()
	cs.lastError = nil
	return nil
}

// Prompt dialog

func (cs *ChatState) OpenDialog() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.dialog = models.PromptDialog{Open: true, Draft: cs.prompt}
}

func (cs *ChatState) CloseDialog() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.dialog = models.PromptDialog{}
}

// AlertDialog shows a blocking notice and keeps draft in the editor.
func (cs *ChatState) AlertDialog(draft, alert string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.dialog = models.PromptDialog{Open: true, Draft: draft, Alert: alert}
}

func (cs *ChatState) DismissAlert() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.dialog.Alert = ""
}

// ApplyPrompt caches a prompt the backend accepted and closes the dialog.
func (cs *ChatState) ApplyPrompt(prompt, notice string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.prompt = prompt
	cs.dialog = models.PromptDialog{}
	cs.transcript.Append(transcript.System, notice)
}

type snapshot struct {
	messages []models.Message
	phase    models.Phase
	role     string
	dialog   models.PromptDialog
	err      error
}

func (cs *ChatState) snapshot() snapshot {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return snapshot{
		messages: cs.messagesLocked(),
		phase:    cs.phase.Phase(),
		role:     cs.role,
		dialog:   cs.dialog,
		err:      cs.lastError,
	}
}
