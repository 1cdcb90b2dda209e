// Package types is the websocket protocol shared with clients.
//
// Client -> Server, one JSON object per frame:
//
//	{"type": "join_host",   "room_code": "123456"}
//	{"type": "join_player", "room_code": "123456", "player_id": "<uuid>"}
//	{"type": "leave",       "room_code": "123456"}
//	{"type": "kick",        "room_code": "123456", "player_id": "<uuid>"}
//	{"type": "mark",        "room_code": "123456", "ticket_id": "<uuid>", "number": 42, "marked": true}
//
// Server -> Client: {"type": <event>, "data": <payload>}. A player rejoining a
// game in progress gets its ticket followed by one "number_drawn_history" frame
// holding every number drawn so far.
package types

// Client operations.
const (
	OpJoinHost   = "join_host"
	OpJoinPlayer = "join_player"
	OpLeave      = "leave"
	OpKick       = "kick"
	OpMark       = "mark"
)

// Server events.
const (
	EventParticipantJoined       = "participant_joined"
	EventParticipantLeft         = "participant_left"
	EventParticipantDisconnected = "participant_disconnected"
	EventKicked                  = "kicked"
	EventGameStarted             = "game_started"
	EventNumberDrawn             = "number_drawn"
	EventNumberDrawnHistory      = "number_drawn_history"
	EventClaimResult             = "claim_result"
	EventGameEnded               = "game_ended"
	EventRoomClosed              = "room_closed"
	EventRoomStatusChanged       = "room_status_changed"
	EventMarked                  = "marked"
	EventError                   = "error"
)

type Participant struct {
	Nickname string `json:"nickname"`
	IsHost   bool   `json:"is_host,omitempty"`
	Count    int    `json:"count"`
}

type Disconnected struct {
	Nickname string `json:"nickname"`
}

type Kicked struct {
	RoomCode string `json:"room_code"`
	Message  string `json:"message"`
}

type ClaimResult struct {
	Nickname string `json:"nickname"`
	Valid    bool   `json:"valid"`
	Row      int    `json:"row"`
	Message  string `json:"message"`
}

type GameEnded struct {
	WinnerNickname *string `json:"winner_nickname"`
	TotalDrawn     int     `json:"total_drawn"`
}

type RoomClosed struct {
	RoomCode string `json:"room_code"`
	ClosedAt string `json:"closed_at"`
}

type StatusChanged struct {
	Status string `json:"status"`
}

type Marked struct {
	TicketID string `json:"ticket_id"`
	Marked   []int  `json:"marked"`
}

type Error struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
