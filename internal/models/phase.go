package models

// Phase is where the current message exchange stands.
type Phase int

const (
	Idle Phase = iota
	Sending
	AwaitingResponse
	Typing
	Errored
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Sending:
		return "sending"
	case AwaitingResponse:
		return "awaiting response"
	case Typing:
		return "typing"
	case Errored:
		return "error"
	}
	return "unknown"
}

// Busy reports whether an exchange is in flight.
func (p Phase) Busy() bool {
	return p == Sending || p == AwaitingResponse || p == Typing
}
