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
	"go.uber.org/zap"
)

var errCodeSpace = errors.New("no free room code")

// CreateRoom returns the host's open room if there is one, otherwise a new Waiting room.
// Calls for the same host are serialized.
func (c *Coordinator) CreateRoom(ctx context.Context, hostID uuid.UUID) (CreateResult, error) {
	var res CreateResult
	err := c.serialize(ctx, "host:"+hostID.String(), func(ctx context.Context) error {
		return translate(c.store.Atomic(ctx, func(tx store.Repos) error {
			open, err := tx.Rooms().ListActiveByHost(ctx, hostID)
			if err != nil {
				return fmt.Errorf("list host rooms: %w", err)
			}
			if len(open) > 0 {
				room := open[0]
				n, err := tx.Players().CountByRoom(ctx, room.ID)
				if err != nil {
					return fmt.Errorf("count players: %w", err)
				}
				res = CreateResult{RoomSummary: summarize(&room, n), Existing: true}
				return nil
			}

			code, err := c.freeCode(ctx, tx)
			if err != nil {
				return err
			}
			now := c.now()
			room := &models.Room{
				Code:           code,
				HostID:         hostID,
				MaxPlayers:     c.cfg.MaxPlayers,
				Status:         engine.StatusWaiting,
				CreatedAt:      now,
				LastActivityAt: now,
			}
			if err := tx.Rooms().Create(ctx, room); err != nil {
				return fmt.Errorf("create room: %w", err)
			}
			res = CreateResult{RoomSummary: summarize(room, 0)}
			return nil
		}))
	}, nil)
	if err != nil {
		return CreateResult{}, err
	}
	if !res.Existing {
		c.log.Info("room created", zap.String("room_code", res.Code), zap.String("host_id", hostID.String()))
	}
	return res, nil
}

func (c *Coordinator) freeCode(ctx context.Context, tx store.Repos) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := c.codes()
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		_, err = tx.Rooms().GetByCode(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("check code: %w", err)
		}
	}
	return "", apperr.ErrInternal.Wrap(errCodeSpace)
}

// ActiveRoom returns the host's newest non-Finished room.
func (c *Coordinator) ActiveRoom(ctx context.Context, hostID uuid.UUID) (RoomSummary, error) {
	var res RoomSummary
	err := c.store.Atomic(ctx, func(tx store.Repos) error {
		open, err := tx.Rooms().ListActiveByHost(ctx, hostID)
		if err != nil {
			return fmt.Errorf("list host rooms: %w", err)
		}
		if len(open) == 0 {
			return apperr.ErrRoomNotFound
		}
		n, err := tx.Players().CountByRoom(ctx, open[0].ID)
		if err != nil {
			return fmt.Errorf("count players: %w", err)
		}
		res = summarize(&open[0], n)
		return nil
	})
	return res, translate(err)
}

func (c *Coordinator) RoomInfo(ctx context.Context, code string) (RoomSummary, error) {
	var res RoomSummary
	err := c.store.Atomic(ctx, func(tx store.Repos) error {
		room, err := c.loadRoom(ctx, tx, code)
		if err != nil {
			return err
		}
		n, err := tx.Players().CountByRoom(ctx, room.ID)
		if err != nil {
			return fmt.Errorf("count players: %w", err)
		}
		res = summarize(room, n)
		return nil
	})
	return res, translate(err)
}

// JoinRoom admits a new player to a Waiting room. Retained disconnected players count
// toward capacity.
func (c *Coordinator) JoinRoom(ctx context.Context, code, nickname string) (JoinResult, error) {
	display, key, err := engine.NormalizeNickname(nickname)
	if err != nil {
		return JoinResult{}, err
	}

	var res JoinResult
	err = c.inRoom(ctx, code, func(ctx context.Context, tx store.Repos) error {
		room, err := c.loadRoom(ctx, tx, code)
		if err != nil {
			return err
		}
		if _, err := engine.Next(room.Status, engine.ActionJoin); err != nil {
			return err
		}
		n, err := tx.Players().CountByRoom(ctx, room.ID)
		if err != nil {
			return fmt.Errorf("count players: %w", err)
		}
		if n >= room.MaxPlayers {
			return apperr.ErrRoomFull
		}
		taken, err := tx.Players().NicknameExists(ctx, room.ID, key)
		if err != nil {
			return fmt.Errorf("check nickname: %w", err)
		}
		if taken {
			return apperr.ErrNicknameTaken
		}

		p := &models.RoomPlayer{
			RoomID:      room.ID,
			Nickname:    display,
			NicknameKey: key,
			JoinedAt:    c.now(),
		}
		if err := tx.Players().Create(ctx, p); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperr.ErrNicknameTaken
			}
			return fmt.Errorf("create player: %w", err)
		}
		if err := c.touch(ctx, tx, room); err != nil {
			return err
		}
		res = JoinResult{PlayerID: p.ID, RoomCode: room.Code, Nickname: p.Nickname}
		return nil
	}, nil)
	if err != nil {
		return JoinResult{}, err
	}
	return res, nil
}

func (c *Coordinator) ListPlayers(ctx context.Context, code string) (PlayerList, error) {
	var res PlayerList
	err := c.store.Atomic(ctx, func(tx store.Repos) error {
		room, err := c.loadRoom(ctx, tx, code)
		if err != nil {
			return err
		}
		players, err := tx.Players().ListByRoom(ctx, room.ID)
		if err != nil {
			return fmt.Errorf("list players: %w", err)
		}
		res = PlayerList{Players: make([]PlayerView, 0, len(players)), Count: len(players), MaxPlayers: room.MaxPlayers}
		for _, p := range players {
			res.Players = append(res.Players, PlayerView{ID: p.ID, Nickname: p.Nickname, Connected: p.IsConnected})
		}
		return nil
	})
	return res, translate(err)
}

// Close force-finishes a room from any non-Finished status, ending an active session
// if there is one.
func (c *Coordinator) Close(ctx context.Context, hostID uuid.UUID, code string) (CloseResult, error) {
	var res CloseResult
	err := c.inRoom(ctx, code, func(ctx context.Context, tx store.Repos) error {
		room, err := c.hostRoom(ctx, tx, code, hostID)
		if err != nil {
			return err
		}
		if _, err := engine.Next(room.Status, engine.ActionClose); err != nil {
			return err
		}

		now := c.now()
		s, err := tx.Sessions().GetActiveByRoom(ctx, room.ID)
		switch {
		case err == nil:
			s.EndedAt = &now
			if err := tx.Sessions().Update(ctx, s); err != nil {
				return fmt.Errorf("end session: %w", err)
			}
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("load session: %w", err)
		}

		room.ClosedAt = &now
		if err := c.transition(ctx, tx, room, engine.ActionClose); err != nil {
			return err
		}
		res = CloseResult{RoomCode: room.Code, ClosedAt: now}
		return nil
	}, func() {
		c.notify.RoomClosed(code, res)
		c.notify.StatusChanged(code, engine.StatusFinished)
		c.retire(code)
	})
	if err != nil {
		return CloseResult{}, err
	}
	c.log.Info("room closed", zap.String("room_code", code))
	return res, nil
}
