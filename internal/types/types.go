package types

type ClientMessage struct {
	Type     string `json:"type"`
	RoomCode string `json:"room_code,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
	TicketID string `json:"ticket_id,omitempty"`
	Number   int    `json:"number,omitempty"`
	Marked   bool   `json:"marked,omitempty"`
}

type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}
