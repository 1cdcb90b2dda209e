package models

import (
	"time"

	"github.com/DoyleJ11/loto-backend/internal/engine"
	"github.com/google/uuid"
)

type Room struct {
	ID             uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Code           string            `gorm:"size:6;not null;uniqueIndex" json:"room_code"`
	HostID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"host_id"`
	MaxPlayers     int               `gorm:"not null;default:5" json:"max_players"`
	Status         engine.RoomStatus `gorm:"size:16;not null;default:'waiting';index" json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	ClosedAt       *time.Time        `json:"closed_at,omitempty"`
}

func (r *Room) IsHost(id uuid.UUID) bool { return r.HostID == id }

type RoomPlayer struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RoomID       uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_room_nickname" json:"room_id"`
	Nickname     string    `gorm:"size:64;not null" json:"nickname"`
	NicknameKey  string    `gorm:"size:64;not null;uniqueIndex:idx_room_nickname" json:"-"`
	ConnectionID string    `gorm:"size:64" json:"-"`
	IsConnected  bool      `gorm:"not null;default:false" json:"is_connected"`
	JoinedAt     time.Time `json:"joined_at"`
}
