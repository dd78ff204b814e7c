package core

import (
	"errors"
	"fmt"

	"github.com/Rorical/RoriChat/internal/models"
)

var ErrIllegalTransition = errors.New("illegal phase transition")

var transitions = map[models.Phase][]models.Phase{
	models.Idle:             {models.Sending},
	models.Sending:          {models.AwaitingResponse, models.Errored},
	models.AwaitingResponse: {models.Typing, models.Errored},
	models.Typing:           {models.Idle},
	models.Errored:          {models.Idle},
}

// phaseMachine guards the exchange lifecycle
// Idle → Sending → AwaitingResponse → {Typing → Idle} | {Errored → Idle}.
type phaseMachine struct {
	current models.Phase
}

func (m *phaseMachine) Phase() models.Phase {
	return m.current
}

func (m *phaseMachine) To(next models.Phase) error {
	for _, allowed := range transitions[m.current] {
		if allowed == next {
			m.current = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, m.current, next)
}

// Reset forces Idle; used when the service shuts down mid-exchange.
func (m *phaseMachine) Reset() {
	m.current = models.Idle
}
