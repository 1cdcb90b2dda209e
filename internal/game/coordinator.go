// Package game is the session coordinator. It owns every room and session state
// transition: room creation and joining, start, draw, claim, end and close, plus the
// membership changes driven by live connections.
//
// Each mutating call runs as a job on the room's lobby goroutine and inside a single
// store transaction. Notifications are emitted from inside the job after the commit, so
// a room's events reach the broadcaster in the order its state changed.
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/loto-backend/internal/apperr"
	"github.com/DoyleJ11/loto-backend/internal/engine"
	"github.com/DoyleJ11/loto-backend/internal/hub"
	"github.com/DoyleJ11/loto-backend/internal/lobby"
	"github.com/DoyleJ11/loto-backend/internal/models"
	"github.com/DoyleJ11/loto-backend/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Config struct {
	MaxPlayers int
}

// Notifier receives the outcome of every committed transition. Implementations must
// not block.
type Notifier interface {
	GameStarted(roomCode string, res StartResult)
	NumberDrawn(roomCode string, res DrawResult)
	ClaimResolved(roomCode string, res ClaimResult)
	GameEnded(roomCode string, res EndResult)
	RoomClosed(roomCode string, res CloseResult)
	StatusChanged(roomCode string, status engine.RoomStatus)
}

type nopNotifier struct{}

func (nopNotifier) GameStarted(string, StartResult) {}
func (nopNotifier) NumberDrawn(string, DrawResult) {}
func (nopNotifier) ClaimResolved(string, ClaimResult) {}
func (nopNotifier) GameEnded(string, EndResult) {}
func (nopNotifier) RoomClosed(string, CloseResult) {}
func (nopNotifier) StatusChanged(string, engine.RoomStatus) {}

type Coordinator struct {
	store  store.Store
	hub    *hub.Hub
	src    engine.Source
	cfg    Config
	log    *zap.Logger
	notify Notifier
	codes  func() (string, error)
	now    func() time.Time
}

func NewCoordinator(st store.Store, h *hub.Hub, src engine.Source, cfg Config, log *zap.Logger) *Coordinator {
	if src == nil {
		src = engine.Rand
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = 5
	}
	return &Coordinator{
		store:  st,
		hub:    h,
		src:    src,
		cfg:    cfg,
		log:    log,
		notify: nopNotifier{},
		codes:  GenerateCode,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetNotifier must be called before the coordinator serves requests.
func (c *Coordinator) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	c.notify = n
}

// serialize runs fn on the lobby for key. A lobby stopped between lookup and enqueue is
// replaced once. When settled is set it is asked before that retry whether fn can run
// without a lobby at all.
func (c *Coordinator) serialize(ctx context.Context, key string, fn func(ctx context.Context) error, settled func(ctx context.Context) (bool, error)) error {
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 && settled != nil {
			done, err := settled(ctx)
			if err != nil {
				return err
			}
			if done {
				return fn(ctx)
			}
		}
		lb, err := c.hub.Ensure(ctx, key)
		if err != nil {
			return apperr.Internal(fmt.Errorf("lobby %s: %w", key, err))
		}
		err = lb.Do(ctx, fn)
		if errors.Is(err, lobby.ErrClosed) {
			continue
		}
		return err
	}
	return apperr.ErrInternal.Wrap(fmt.Errorf("lobby %s: %w", key, lobby.ErrClosed))
}

// inRoom serializes on the room and runs fn inside one transaction. after runs only when
// the transaction committed, still on the room goroutine. Rooms are never deleted and a
// Finished room never changes again, so a Finished room needs no lobby: such jobs run
// directly, and a lobby found serving one is retired.
func (c *Coordinator) inRoom(ctx context.Context, code string, fn func(ctx context.Context, tx store.Repos) error, after func()) error {
	if !ValidCode(code) {
		return apperr.ErrRoomNotFound
	}
	finished := func(ctx context.Context) (bool, error) {
		room, err := c.store.Rooms().GetByCode(ctx, code)
		if err != nil {
			return false, translate(lookup(err, apperr.ErrRoomNotFound, "load room"))
		}
		return room.Status == engine.StatusFinished, nil
	}
	done, err := finished(ctx)
	if err != nil {
		return err
	}

	run := func(ctx context.Context, queued bool) error {
		stale := false
		err := c.store.Atomic(ctx, func(tx store.Repos) error {
			if queued {
				room, err := tx.Rooms().GetByCode(ctx, code)
				if err == nil && room.Status == engine.StatusFinished {
					stale = true
				}
			}
			return fn(ctx, tx)
		})
		if stale {
			c.retire(code)
		}
		if err != nil {
			return translate(err)
		}
		if after != nil {
			after()
		}
		return nil
	}
	if done {
		return run(ctx, false)
	}
	return c.serialize(ctx, code, func(ctx context.Context) error { return run(ctx, true) }, finished)
}

// retire drops the lobby of a room that reached Finished.
func (c *Coordinator) retire(code string) {
	c.hub.Remove(code)
}

// translate leaves classified errors and context errors alone and turns everything
// else into INTERNAL.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperr.Internal(err)
}

func lookup(err error, notFound *apperr.Error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (c *Coordinator) loadRoom(ctx context.Context, tx store.Repos, code string) (*models.Room, error) {
	room, err := tx.Rooms().GetByCode(ctx, code)
	if err != nil {
		return nil, lookup(err, apperr.ErrRoomNotFound, "load room")
	}
	return room, nil
}

// hostRoom loads the room and checks host authority before any status guard, so a
// non-host caller is refused the same way in every status.
func (c *Coordinator) hostRoom(ctx context.Context, tx store.Repos, code string, hostID uuid.UUID) (*models.Room, error) {
	room, err := c.loadRoom(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(hostID) {
		return nil, apperr.ErrNotHost
	}
	return room, nil
}

func (c *Coordinator) activeSession(ctx context.Context, tx store.Repos, room *models.Room) (*models.GameSession, error) {
	s, err := tx.Sessions().GetActiveByRoom(ctx, room.ID)
	if err != nil {
		return nil, lookup(err, apperr.ErrGameNotStarted, "load session")
	}
	return s, nil
}

func (c *Coordinator) drawnNumbers(ctx context.Context, tx store.Repos, sessionID uuid.UUID) ([]int, error) {
	list, err := tx.Drawn().ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list drawn: %w", err)
	}
	out := make([]int, len(list))
	for i, d := range list {
		out[i] = d.Number
	}
	return out, nil
}

// transition moves room to the status action leads to and refreshes its activity time.
func (c *Coordinator) transition(ctx context.Context, tx store.Repos, room *models.Room, action engine.Action) error {
	next, err := engine.Next(room.Status, action)
	if err != nil {
		return err
	}
	room.Status = next
	return c.touch(ctx, tx, room)
}

func (c *Coordinator) touch(ctx context.Context, tx store.Repos, room *models.Room) error {
	room.LastActivityAt = c.now()
	if err := tx.Rooms().Update(ctx, room); err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	return nil
}
