// Package store declares the persistence contracts the game core consumes. Concrete
// implementations live in memstore (in-process) and pgstore (PostgreSQL via gorm).
package store

import (
	"context"
	"errors"

	"github.com/DoyleJ11/loto-backend/internal/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("store: record not found")
	ErrConflict = errors.New("store: unique constraint violated")
)

type Rooms interface {
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	GetByCode(ctx context.Context, code string) (*models.Room, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Room, error)
	// ListActiveByHost returns the host's non-finished rooms, newest first.
	ListActiveByHost(ctx context.Context, hostID uuid.UUID) ([]models.Room, error)
}

type Sessions interface {
	Create(ctx context.Context, s *models.GameSession) error
	Update(ctx context.Context, s *models.GameSession) error
	// GetActiveByRoom returns the session of roomID whose EndedAt is nil.
	GetActiveByRoom(ctx context.Context, roomID uuid.UUID) (*models.GameSession, error)
}

type Tickets interface {
	Create(ctx context.Context, t *models.Ticket) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	GetBySessionAndPlayer(ctx context.Context, sessionID, playerID uuid.UUID) (*models.Ticket, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Ticket, error)
	UpdateMarked(ctx context.Context, id uuid.UUID, marked []int) error
}

type DrawnNumbers interface {
	Create(ctx context.Context, d *models.DrawnNumber) error
	// ListBySession returns the session's draws ordered by DrawOrder.
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.DrawnNumber, error)
	CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error)
}

type Players interface {
	Create(ctx context.Context, p *models.RoomPlayer) error
	Update(ctx context.Context, p *models.RoomPlayer) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RoomPlayer, error)
	// ListByRoom returns the room's players ordered by JoinedAt.
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]models.RoomPlayer, error)
	CountByRoom(ctx context.Context, roomID uuid.UUID) (int, error)
	// NicknameExists compares against RoomPlayer.NicknameKey.
	NicknameExists(ctx context.Context, roomID uuid.UUID, nicknameKey string) (bool, error)
}

// Repos groups the repositories visible inside one unit of work.
type Repos interface {
	Rooms() Rooms
	Sessions() Sessions
	Tickets() Tickets
	Drawn() DrawnNumbers
	Players() Players
}

type Store interface {
	Repos
	// Atomic runs fn in a transaction: either every write fn made is applied or none.
	Atomic(ctx context.Context, fn func(tx Repos) error) error
	Close() error
}
