package game

import (
	"time"

	"github.com/DoyleJ11/loto-backend/internal/engine"
	"github.com/DoyleJ11/loto-backend/internal/models"
	"github.com/google/uuid"
)

type RoomSummary struct {
	RoomID      uuid.UUID         `json:"room_id"`
	Code        string            `json:"room_code"`
	Status      engine.RoomStatus `json:"status"`
	MaxPlayers  int               `json:"max_players"`
	PlayerCount int               `json:"player_count"`
	CreatedAt   time.Time         `json:"created_at"`
}

type CreateResult struct {
	RoomSummary
	// Existing is set when the host already had an open room and it was returned.
	Existing bool `json:"existing"`
}

type JoinResult struct {
	PlayerID uuid.UUID `json:"player_id"`
	RoomCode string    `json:"room_code"`
	Nickname string    `json:"nickname"`
}

type PlayerView struct {
	ID        uuid.UUID `json:"id"`
	Nickname  string    `json:"nickname"`
	Connected bool      `json:"connected"`
}

type PlayerList struct {
	Players    []PlayerView `json:"players"`
	Count      int          `json:"count"`
	MaxPlayers int          `json:"max_players"`
}

type PlayerTicket struct {
	PlayerID uuid.UUID   `json:"player_id"`
	Nickname string      `json:"nickname"`
	TicketID uuid.UUID   `json:"ticket_id"`
	Grid     engine.Grid `json:"grid"`
}

type StartResult struct {
	SessionID   uuid.UUID      `json:"session_id"`
	StartedAt   time.Time      `json:"started_at"`
	PlayerCount int            `json:"player_count"`
	Tickets     []PlayerTicket `json:"-"`
}

type DrawResult struct {
	Number    int `json:"number"`
	Order     int `json:"order"`
	Remaining int `json:"remaining"`
	// AllDrawn is ascending by number.
	AllDrawn []int `json:"all_drawn"`
}

type ClaimResult struct {
	Valid    bool      `json:"valid"`
	PlayerID uuid.UUID `json:"player_id"`
	Nickname string    `json:"nickname"`
	Row      int       `json:"row"`
	Message  string    `json:"message"`
	Missing  []int     `json:"missing,omitempty"`
}

type EndResult struct {
	SessionID      uuid.UUID `json:"session_id"`
	WinnerNickname *string   `json:"winner_nickname"`
	TotalDrawn     int       `json:"total_drawn"`
}

type CloseResult struct {
	RoomCode string    `json:"room_code"`
	ClosedAt time.Time `json:"closed_at"`
}

type State struct {
	Status     engine.RoomStatus `json:"status"`
	SessionID  *uuid.UUID        `json:"session_id"`
	DrawnCount int               `json:"drawn_count"`
	LastNumber *int              `json:"last_number"`
	// AllDrawn is in draw order.
	AllDrawn []int `json:"all_drawn"`
}

type MarkResult struct {
	TicketID uuid.UUID `json:"ticket_id"`
	Marked   []int     `json:"marked"`
}

func summarize(room *models.Room, players int) RoomSummary {
	return RoomSummary{
		RoomID:      room.ID,
		Code:        room.Code,
		Status:      room.Status,
		MaxPlayers:  room.MaxPlayers,
		PlayerCount: players,
		CreatedAt:   room.CreatedAt,
	}
}
