package types

import "encoding/json"

// GameStarted goes to one player only. Ticket is {"rows": [[n|null, ...] x9] x9}.
type GameStarted struct {
	SessionID string          `json:"session_id"`
	TicketID  string          `json:"ticket_id"`
	Ticket    json.RawMessage `json:"ticket"`
}

type NumberDrawn struct {
	Number int `json:"number"`
	Order  int `json:"order"`
}

// NumberDrawnHistory replays every number drawn so far, in draw order, to one
// reconnecting player.
type NumberDrawnHistory struct {
	Drawn []NumberDrawn `json:"drawn"`
}
