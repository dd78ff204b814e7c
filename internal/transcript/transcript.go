// Package transcript holds the ordered list of displayed chat messages.
// It has no UI dependency so it can be driven and inspected from tests.
package transcript

import "fmt"

type Speaker int

const (
	User Speaker = iota
	Assistant
	System
)

func (s Speaker) String() string {
	switch s {
	case User:
		return "user"
	case Assistant:
		return "assistant"
	case System:
		return "system"
	}
	return "unknown"
}

type Message struct {
	ID      int
	Speaker Speaker
	Text    string
	Typing  bool // assistant placeholder while a reply is pending
}

// Transcript is not safe for concurrent use; callers guard it.
type Transcript struct {
	messages []Message
	nextID   int
}

func New() *Transcript {
	return &Transcript{messages: make([]Message, 0)}
}

func (t *Transcript) Append(speaker Speaker, text string) int {
	t.nextID++
	t.messages = append(t.messages, Message{ID: t.nextID, Speaker: speaker, Text: text})
	return t.nextID
}

// AppendPlaceholder adds an assistant message marked as typing.
func (t *Transcript) AppendPlaceholder() int {
	id := t.Append(Assistant, "")
	t.messages[len(t.messages)-1].Typing = true
	return id
}

func (t *Transcript) SetText(id int, text string) error {
	i, err := t.index(id)
	if err != nil {
		return err
	}
	t.messages[i].Text = text
	return nil
}

// Resolve clears the typing marker and sets the final or initial text.
func (t *Transcript) Resolve(id int, text string) error {
	i, err := t.index(id)
	if err != nil {
		return err
	}
	t.messages[i].Text = text
	t.messages[i].Typing = false
	return nil
}

func (t *Transcript) Get(id int) (Message, bool) {
	i, err := t.index(id)
	if err != nil {
		return Message{}, false
	}
	return t.messages[i], true
}

func (t *Transcript) Messages() []Message {
	result := make([]Message, len(t.messages))
	copy(result, t.messages)
	return result
}

func (t *Transcript) Len() int {
	return len(t.messages)
}

func (t *Transcript) index(id int) (int, error) {
	// IDs are assigned in append order, so search from the tail where
	// the active assistant message lives.
	for i := len(t.messages) - 1; i >= 0; i-- {
		if t.messages[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("message %d not found", id)
}
