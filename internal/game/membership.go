package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/DoyleJ11/loto-backend/internal/apperr"
	"github.com/DoyleJ11/loto-backend/internal/engine"
	"github.com/DoyleJ11/loto-backend/internal/models"
	"github.com/DoyleJ11/loto-backend/internal/store"
	"github.com/google/uuid"
)

// Member describes the party a membership change was applied to. Count is the number
// of players in the room afterwards.
type Member struct {
	RoomCode string
	RoomID   uuid.UUID
	UserID   uuid.UUID
	Nickname string
	IsHost   bool
	Status   engine.RoomStatus
	Count    int
}

type DrawnEntry struct {
	Number int `json:"number"`
	Order  int `json:"order"`
}

// Replay is what a player joining a running game needs to rebuild their view.
type Replay struct {
	SessionID uuid.UUID
	Ticket    *PlayerTicket
	Drawn     []DrawnEntry
}

// The callbacks below run on the room goroutine right after the change committed, so no
// draw or transition of the same room can slip in between the change and whatever the
// callback sends.

// ConnectHost attaches the room's host.
func (c *Coordinator) ConnectHost(ctx context.Context, code string, hostID uuid.UUID, attach func(Member)) error {
	var m Member
	return c.inRoom(ctx, code, func(ctx context.Context, tx store.Repos) error {
		room, err := c.hostRoom(ctx, tx, code, hostID)
		if err != nil {
			return err
		}
		if _, err := engine.Next(room.Status, engine.ActionConnect); err != nil {
			return err
		}
		n, err := tx.Players().CountByRoom(ctx, room.ID)
		if err != nil {
			return fmt.Errorf("count players: %w", err)
		}
		m = Member{RoomCode: room.Code, RoomID: room.ID, UserID: hostID, IsHost: true, Status: room.Status, Count: n}
		return nil
	}, func() { attach(m) })
}

// ConnectPlayer binds connID to a player of the room and marks them connected. While the
// room is Playing, attach also receives the player's ticket and the ordered draw history.
func (c *Coordinator) ConnectPlayer(ctx context.Context, code string, playerID uuid.UUID, connID string, attach func(Member, *Replay)) error {
	var (
		m      Member
		replay *Replay
	)
	return c.inRoom(ctx, code, func(ctx context.Context, tx store.Repos) error {
		room, err := c.loadRoom(ctx, tx, code)
		if err != nil {
			return err
		}
		if _, err := engine.Next(room.Status, engine.ActionConnect); err != nil {
			return err
		}
		p, err := c.roomPlayer(ctx, tx, room, playerID)
		if err != nil {
			return err
		}
		p.IsConnected = true
		p.ConnectionID = connID
		if err := tx.Players().Update(ctx, p); err != nil {
			return fmt.Errorf("update player: %w", err)
		}
		n, err := tx.Players().CountByRoom(ctx, room.ID)
		if err != nil {
			return fmt.Errorf("count players: %w", err)
		}
		m = Member{RoomCode: room.Code, RoomID: room.ID, UserID: p.ID, Nickname: p.Nickname, Status: room.Status, Count: n}

		if room.Status == engine.StatusPlaying {
			replay, err = c.replay(ctx, tx, room, p)
			if err != nil {
				return err
			}
		}
		return nil
	}, func() { attach(m, replay) })
}

func (c *Coordinator) replay(ctx context.Context, tx store.Repos, room *models.Room, p *models.RoomPlayer) (*Replay, error) {
	s, err := c.activeSession(ctx, tx, room)
	if err != nil {
		return nil, err
	}
	out := &Replay{SessionID: s.ID, Drawn: []DrawnEntry{}}

	t, err := tx.Tickets().GetBySessionAndPlayer(ctx, s.ID, p.ID)
	switch {
	case err == nil:
		out.Ticket = &PlayerTicket{PlayerID: p.ID, Nickname: p.Nickname, TicketID: t.ID, Grid: t.Cells()}
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("load ticket: %w", err)
	}

	drawn, err := tx.Drawn().ListBySession(ctx, s.ID)
	if err != nil {
		return nil, fmt.Errorf("list drawn: %w", err)
	}
	for _, d := range drawn {
		out.Drawn = append(out.Drawn, DrawnEntry{Number: d.Number, Order: d.DrawOrder})
	}
	return out, nil
}

// DisconnectPlayer marks the player disconnected but keeps their seat. A connID that is
// no longer the player's current connection is ignored, as is a Finished room.
func (c *Coordinator) DisconnectPlayer(ctx context.Context, code string, playerID uuid.UUID, connID string, detach func(Member)) error {
	var m *Member
	return c.inRoom(ctx, code, func(ctx context.Context, tx store.Repos) error {
		room, err := c.loadRoom(ctx, tx, code)
		if err != nil {
			return err
		}
		if room.Status == engine.StatusFinished {
			return nil
		}
		p, err := tx.Players().GetByID(ctx, playerID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load player: %w", err)
		}
		if p.RoomID != room.ID || p.ConnectionID != connID {
			return nil
		}
		p.IsConnected = false
		p.ConnectionID = ""
		if err := tx.Players().Update(ctx, p); err != nil {
			return fmt.Errorf("update player: %w", err)
		}
		n, err := tx.Players().CountByRoom(ctx, room.ID)
		if err != nil {
			return fmt.Errorf("count players: %w", err)
		}
		m = &Member{RoomCode: room.Code, RoomID: room.ID, UserID: p.ID, Nickname: p.Nickname, Status: room.Status, Count: n}
		return nil
	}, func() {
		if m != nil {
			detach(*m)
		}
	})
}

// Leave removes the calling player from the room and frees the seat.
func (c *Coordinator) Leave(ctx context.Context, code string, playerID uuid.UUID, detach func(Member)) error {
	return c.removePlayer(ctx, code, nil, playerID, detach)
}

// Kick removes playerID on the host's request.
func (c *Coordinator) Kick(ctx context.Context, code string, hostID, playerID uuid.UUID, detach func(Member)) error {
	return c.removePlayer(ctx, code, &hostID, playerID, detach)
}

func (c *Coordinator) removePlayer(ctx context.Context, code string, hostID *uuid.UUID, playerID uuid.UUID, detach func(Member)) error {
	var m Member
	return c.inRoom(ctx, code, func(ctx context.Context, tx store.Repos) error {
		var (
			room *models.Room
			err  error
		)
		if hostID != nil {
			room, err = c.hostRoom(ctx, tx, code, *hostID)
		} else {
			room, err = c.loadRoom(ctx, tx, code)
		}
		if err != nil {
			return err
		}
		if _, err := engine.Next(room.Status, engine.ActionConnect); err != nil {
			return err
		}
		p, err := c.roomPlayer(ctx, tx, room, playerID)
		if err != nil {
			return err
		}
		if err := tx.Players().Delete(ctx, p.ID); err != nil {
			return lookup(err, apperr.ErrPlayerNotFound, "delete player")
		}
		if err := c.touch(ctx, tx, room); err != nil {
			return err
		}
		n, err := tx.Players().CountByRoom(ctx, room.ID)
		if err != nil {
			return fmt.Errorf("count players: %w", err)
		}
		m = Member{RoomCode: room.Code, RoomID: room.ID, UserID: p.ID, Nickname: p.Nickname, Status: room.Status, Count: n}
		return nil
	}, func() { detach(m) })
}

func (c *Coordinator) roomPlayer(ctx context.Context, tx store.Repos, room *models.Room, playerID uuid.UUID) (*models.RoomPlayer, error) {
	p, err := tx.Players().GetByID(ctx, playerID)
	if err != nil {
		return nil, lookup(err, apperr.ErrPlayerNotFound, "load player")
	}
	if p.RoomID != room.ID {
		return nil, apperr.ErrPlayerNotFound
	}
	return p, nil
}
