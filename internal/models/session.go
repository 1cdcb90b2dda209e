package models

import (
	"time"

	"github.com/DoyleJ11/loto-backend/internal/engine"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type GameSession struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID            uuid.UUID  `gorm:"type:uuid;not null;index" json:"room_id"`
	StartedAt         time.Time  `gorm:"not null" json:"started_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
	WinnerPlayerID    *uuid.UUID `gorm:"type:uuid" json:"winner_player_id,omitempty"`
	WinnerRow         *int       `json:"winner_row,omitempty"`
	TotalNumbersDrawn int        `gorm:"not null;default:0" json:"total_numbers_drawn"`
}

func (s *GameSession) Active() bool    { return s.EndedAt == nil }
func (s *GameSession) HasWinner() bool { return s.WinnerPlayerID != nil }

type Ticket struct {
	ID            uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID     uuid.UUID                       `gorm:"type:uuid;not null;uniqueIndex:idx_ticket_session_player" json:"session_id"`
	PlayerID      uuid.UUID                       `gorm:"type:uuid;not null;uniqueIndex:idx_ticket_session_player" json:"player_id"`
	Grid          datatypes.JSONType[engine.Grid] `gorm:"type:jsonb;not null" json:"grid"`
	MarkedNumbers datatypes.JSONSlice[int]        `gorm:"type:jsonb;not null" json:"marked_numbers"`
	CreatedAt     time.Time                       `json:"created_at"`
}

// Cells returns the ticket grid.
func (t *Ticket) Cells() engine.Grid { return t.Grid.Data() }

type DrawnNumber struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_drawn_session_number;uniqueIndex:idx_drawn_session_order" json:"session_id"`
	Number    int       `gorm:"not null;uniqueIndex:idx_drawn_session_number" json:"number"`
	DrawOrder int       `gorm:"not null;uniqueIndex:idx_drawn_session_order" json:"draw_order"`
	DrawnAt   time.Time `json:"drawn_at"`
}
