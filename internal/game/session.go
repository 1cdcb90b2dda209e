package game

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/DoyleJ11/loto-backend/internal/apperr"
	"github.com/DoyleJ11/loto-backend/internal/engine"
	"github.com/DoyleJ11/loto-backend/internal/models"
	"github.com/DoyleJ11/loto-backend/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	msgClaimValid   = "Kinh! Row complete."
	msgClaimInvalid = "Not yet, keep playing."
)

// Start opens a session and deals one ticket to every player currently in the room.
func (c *Coordinator) Start(ctx context.Context, hostID uuid.UUID, code string) (StartResult, error) {
	var res StartResult
	err := c.inRoom(ctx, code, func(ctx context.Context, tx store.Repos) error {
		room, err := c.hostRoom(ctx, tx, code, hostID)
		if err != nil {
			return err
		}
		if _, err := engine.Next(room.Status, engine.ActionStart); err != nil {
			return err
		}
		players, err := tx.Players().ListByRoom(ctx, room.ID)
		if err != nil {
			return fmt.Errorf("list players: %w", err)
		}
		if len(players) == 0 {
			return apperr.ErrNoPlayers
		}

		s := &models.GameSession{RoomID: room.ID, StartedAt: c.now()}
		if err := tx.Sessions().Create(ctx, s); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperr.ErrGameStarted
			}
			return fmt.Errorf("create session: %w", err)
		}

		res = StartResult{SessionID: s.ID, StartedAt: s.StartedAt, PlayerCount: len(players)}
		for _, p := range players {
			grid := engine.GenerateTicket(c.src)
			t := &models.Ticket{
				SessionID:     s.ID,
				PlayerID:      p.ID,
				Grid:          datatypes.NewJSONType(grid),
				MarkedNumbers: datatypes.JSONSlice[int]{},
				CreatedAt:     c.now(),
			}
			if err := tx.Tickets().Create(ctx, t); err != nil {
				return fmt.Errorf("create ticket: %w", err)
			}
			res.Tickets = append(res.Tickets, PlayerTicket{PlayerID: p.ID, Nickname: p.Nickname, TicketID: t.ID, Grid: grid})
		}
		return c.transition(ctx, tx, room, engine.ActionStart)
	}, func() {
		c.notify.GameStarted(code, res)
		c.notify.StatusChanged(code, engine.StatusPlaying)
	})
	if err != nil {
		return StartResult{}, err
	}
	c.log.Info("game started", zap.String("room_code", code), zap.Int("players", res.PlayerCount))
	return res, nil
}

// Draw reveals the next number of the active session.
func (c *Coordinator) Draw(ctx context.Context, hostID uuid.UUID, code string) (DrawResult, error) {
	var res DrawResult
	err := c.inRoom(ctx, code, func(ctx context.Context, tx store.Repos) error {
		room, err := c.hostRoom(ctx, tx, code, hostID)
		if err != nil {
			return err
		}
		if _, err := engine.Next(room.Status, engine.ActionDraw); err != nil {
			return err
		}
		s, err := c.activeSession(ctx, tx, room)
		if err != nil {
			return err
		}
		drawn, err := c.drawnNumbers(ctx, tx, s.ID)
		if err != nil {
			return err
		}

		number, order, err := engine.NextNumber(c.src, drawn)
		if err != nil {
			return err
		}
		d := &models.DrawnNumber{SessionID: s.ID, Number: number, DrawOrder: order, DrawnAt: c.now()}
		if err := tx.Drawn().Create(ctx, d); err != nil {
			return fmt.Errorf("record draw: %w", err)
		}
		s.TotalNumbersDrawn = order
		if err := tx.Sessions().Update(ctx, s); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		if err := c.touch(ctx, tx, room); err != nil {
			return err
		}

		all := append(slices.Clone(drawn), number)
		slices.Sort(all)
		res = DrawResult{Number: number, Order: order, Remaining: engine.PoolSize - order, AllDrawn: all}
		return nil
	}, func() {
		c.notify.NumberDrawn(code, res)
	})
	if err != nil {
		return DrawResult{}, err
	}
	return res, nil
}

// Claim checks a row of ticketID against the numbers drawn so far. A valid claim ends
// the game; an invalid one changes nothing.
func (c *Coordinator) Claim(ctx context.Context, code string, ticketID uuid.UUID, row int) (ClaimResult, error) {
	var (
		res   ClaimResult
		ended EndResult
	)
	err := c.inRoom(ctx, code, func(ctx context.Context, tx store.Repos) error {
		room, err := c.loadRoom(ctx, tx, code)
		if err != nil {
			return err
		}
		if _, err := engine.Next(room.Status, engine.ActionClaim); err != nil {
			return err
		}
		s, err := c.activeSession(ctx, tx, room)
		if err != nil {
			return err
		}
		if s.HasWinner() {
			return apperr.ErrGameEnded
		}
		t, err := tx.Tickets().GetByID(ctx, ticketID)
		if err != nil {
			return lookup(err, apperr.ErrTicketNotFound, "load ticket")
		}
		if t.SessionID != s.ID {
			return apperr.ErrTicketNotInGame
		}
		drawn, err := c.drawnNumbers(ctx, tx, s.ID)
		if err != nil {
			return err
		}
		verdict, err := engine.CheckRow(t.Cells(), row, engine.DrawnSet(drawn))
		if err != nil {
			return err
		}
		p, err := tx.Players().GetByID(ctx, t.PlayerID)
		if err != nil {
			return lookup(err, apperr.ErrPlayerNotFound, "load player")
		}

		res = ClaimResult{Valid: verdict.Valid, PlayerID: p.ID, Nickname: p.Nickname, Row: row, Missing: verdict.Missing}
		if !verdict.Valid {
			res.Message = msgClaimInvalid
			return nil
		}
		res.Message = msgClaimValid

		now := c.now()
		winner, winRow := p.ID, row
		s.WinnerPlayerID = &winner
		s.WinnerRow = &winRow
		s.EndedAt = &now
		s.TotalNumbersDrawn = len(drawn)
		if err := tx.Sessions().Update(ctx, s); err != nil {
			return fmt.Errorf("record winner: %w", err)
		}
		nickname := p.Nickname
		ended = EndResult{SessionID: s.ID, WinnerNickname: &nickname, TotalDrawn: len(drawn)}
		return c.transition(ctx, tx, room, engine.ActionWin)
	}, func() {
		c.notify.ClaimResolved(code, res)
		if res.Valid {
			c.notify.GameEnded(code, ended)
			c.notify.StatusChanged(code, engine.StatusFinished)
			c.retire(code)
		}
	})
	if err != nil {
		return ClaimResult{}, err
	}
	if res.Valid {
		c.log.Info("claim accepted", zap.String("room_code", code), zap.String("player_id", res.PlayerID.String()), zap.Int("row", row))
	}
	return res, nil
}

// End finishes the active session on the host's request.
func (c *Coordinator) End(ctx context.Context, hostID uuid.UUID, code string) (EndResult, error) {
	var res EndResult
	err := c.inRoom(ctx, code, func(ctx context.Context, tx store.Repos) error {
		room, err := c.hostRoom(ctx, tx, code, hostID)
		if err != nil {
			return err
		}
		if _, err := engine.Next(room.Status, engine.ActionEnd); err != nil {
			return err
		}
		s, err := c.activeSession(ctx, tx, room)
		if err != nil {
			return err
		}
		total, err := tx.Drawn().CountBySession(ctx, s.ID)
		if err != nil {
			return fmt.Errorf("count drawn: %w", err)
		}

		now := c.now()
		s.EndedAt = &now
		s.TotalNumbersDrawn = total
		if err := tx.Sessions().Update(ctx, s); err != nil {
			return fmt.Errorf("end session: %w", err)
		}

		res = EndResult{SessionID: s.ID, TotalDrawn: total}
		if s.HasWinner() {
			p, err := tx.Players().GetByID(ctx, *s.WinnerPlayerID)
			switch {
			case err == nil:
				res.WinnerNickname = &p.Nickname
			case !errors.Is(err, store.ErrNotFound):
				return fmt.Errorf("load winner: %w", err)
			}
		}
		return c.transition(ctx, tx, room, engine.ActionEnd)
	}, func() {
		c.notify.GameEnded(code, res)
		c.notify.StatusChanged(code, engine.StatusFinished)
		c.retire(code)
	})
	if err != nil {
		return EndResult{}, err
	}
	c.log.Info("game ended", zap.String("room_code", code), zap.Int("total_drawn", res.TotalDrawn))
	return res, nil
}

// State is the host's view of the room's current session.
func (c *Coordinator) State(ctx context.Context, hostID uuid.UUID, code string) (State, error) {
	var res State
	err := c.store.Atomic(ctx, func(tx store.Repos) error {
		room, err := c.hostRoom(ctx, tx, code, hostID)
		if err != nil {
			return err
		}
		res = State{Status: room.Status, AllDrawn: []int{}}
		s, err := tx.Sessions().GetActiveByRoom(ctx, room.ID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		drawn, err := c.drawnNumbers(ctx, tx, s.ID)
		if err != nil {
			return err
		}
		id := s.ID
		res.SessionID = &id
		res.DrawnCount = len(drawn)
		res.AllDrawn = drawn
		if len(drawn) > 0 {
			last := drawn[len(drawn)-1]
			res.LastNumber = &last
		}
		return nil
	})
	return res, translate(err)
}

// MarkNumber sets or clears number in a ticket's informational marked set.
func (c *Coordinator) MarkNumber(ctx context.Context, code string, ticketID uuid.UUID, number int, marked bool) (MarkResult, error) {
	if number < engine.MinNumber || number > engine.MaxNumber {
		return MarkResult{}, apperr.ErrInvalidInput.WithMessage("number must be between 1 and 90")
	}
	var res MarkResult
	err := c.inRoom(ctx, code, func(ctx context.Context, tx store.Repos) error {
		room, err := c.loadRoom(ctx, tx, code)
		if err != nil {
			return err
		}
		if _, err := engine.Next(room.Status, engine.ActionMark); err != nil {
			return err
		}
		s, err := c.activeSession(ctx, tx, room)
		if err != nil {
			return err
		}
		t, err := tx.Tickets().GetByID(ctx, ticketID)
		if err != nil {
			return lookup(err, apperr.ErrTicketNotFound, "load ticket")
		}
		if t.SessionID != s.ID {
			return apperr.ErrTicketNotInGame
		}
		g := t.Cells()
		if !g.Contains(number) {
			return apperr.ErrNumberNotOnTicket
		}

		set := slices.Clone([]int(t.MarkedNumbers))
		slices.Sort(set)
		i, found := slices.BinarySearch(set, number)
		switch {
		case marked && !found:
			set = slices.Insert(set, i, number)
		case !marked && found:
			set = slices.Delete(set, i, i+1)
		}
		if err := tx.Tickets().UpdateMarked(ctx, t.ID, set); err != nil {
			return fmt.Errorf("update marks: %w", err)
		}
		res = MarkResult{TicketID: t.ID, Marked: set}
		return nil
	}, nil)
	if err != nil {
		return MarkResult{}, err
	}
	return res, nil
}
