// Package callflow is the webhook-driven call state machine: it maps one
// telephony gateway event plus the persisted call state to a new state and a
// voice-response document. Handlers are stateless; everything lives in the
// database, and every read-modify-write is a conditional UPDATE so retried
// deliveries cannot double-apply.
package callflow

// Event is one parsed webhook delivery from the telephony gateway.
type Event struct {
	CallSID   string // gateway call identifier, required
	From      string // origin phone number
	To        string // destination phone number
	Status    string // gateway call status, may be empty
	Utterance string // transcribed speech, may be empty
}

// terminalStatuses end a call; everything else keeps it open.
var terminalStatuses = map[string]bool{
	"completed": true,
	"busy":      true,
	"no-answer": true,
	"failed":    true,
	"canceled":  true,
}

// Terminal reports whether this event ends the call.
func (e Event) Terminal() bool {
	return terminalStatuses[e.Status]
}
