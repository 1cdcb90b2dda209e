// Package realtime is the live-transport boundary. It keeps the connection registry in
// step with membership changes and turns coordinator transitions into events for the
// right recipients. The registry is the only record of who is in which room; a room's
// broadcast group is its registry entries.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/DoyleJ11/loto-backend/internal/apperr"
	"github.com/DoyleJ11/loto-backend/internal/engine"
	"github.com/DoyleJ11/loto-backend/internal/game"
	"github.com/DoyleJ11/loto-backend/internal/registry"
	"github.com/DoyleJ11/loto-backend/internal/types"
	pub "github.com/DoyleJ11/loto-backend/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Conn is one live client connection. Send must not block: it reports false when the
// message could not be queued.
type Conn interface {
	ID() string
	Send(msg []byte) bool
	Close()
}

// Membership is the part of the coordinator the broadcaster drives.
type Membership interface {
	ConnectHost(ctx context.Context, code string, hostID uuid.UUID, attach func(game.Member)) error
	ConnectPlayer(ctx context.Context, code string, playerID uuid.UUID, connID string, attach func(game.Member, *game.Replay)) error
	DisconnectPlayer(ctx context.Context, code string, playerID uuid.UUID, connID string, detach func(game.Member)) error
	Leave(ctx context.Context, code string, playerID uuid.UUID, detach func(game.Member)) error
	Kick(ctx context.Context, code string, hostID, playerID uuid.UUID, detach func(game.Member)) error
	MarkNumber(ctx context.Context, code string, ticketID uuid.UUID, number int, marked bool) (game.MarkResult, error)
}

var errNotJoined = apperr.ErrInvalidInput.WithMessage("connection has not joined a room")

const kickMessage = "You were removed from the room by the host."

type Broadcaster struct {
	reg     *registry.Registry
	members Membership
	log     *zap.Logger

	mu    sync.RWMutex
	conns map[string]Conn
}

var _ game.Notifier = (*Broadcaster)(nil)

func NewBroadcaster(reg *registry.Registry, members Membership, log *zap.Logger) *Broadcaster {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broadcaster{
		reg:     reg,
		members: members,
		log:     log,
		conns:   make(map[string]Conn),
	}
}

// Attach makes c addressable. It joins no room yet.
func (b *Broadcaster) Attach(c Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conns[c.ID()] = c
}

func (b *Broadcaster) JoinHost(ctx context.Context, c Conn, code string, hostID uuid.UUID) error {
	return b.members.ConnectHost(ctx, code, hostID, func(m game.Member) {
		b.reg.Add(registry.Info{ConnID: c.ID(), RoomCode: m.RoomCode, UserID: hostID, IsHost: true})
		b.toGroup(m.RoomCode, pub.EventParticipantJoined, pub.Participant{Count: m.Count, IsHost: true})
	})
}

// JoinPlayer binds c to a player. While a game is running the player's ticket and the
// ordered draw history are sent to c alone, the history as a single frame so it cannot
// be cut short by the connection's send buffer.
func (b *Broadcaster) JoinPlayer(ctx context.Context, c Conn, code string, playerID uuid.UUID) error {
	return b.members.ConnectPlayer(ctx, code, playerID, c.ID(), func(m game.Member, replay *game.Replay) {
		superseded := b.reg.Add(registry.Info{ConnID: c.ID(), RoomCode: m.RoomCode, UserID: m.UserID, Nickname: m.Nickname})
		if superseded != "" {
			b.drop(superseded)
		}
		b.toGroup(m.RoomCode, pub.EventParticipantJoined, pub.Participant{Nickname: m.Nickname, Count: m.Count})

		if replay == nil {
			return
		}
		if replay.Ticket != nil {
			b.sendTicket(c.ID(), replay.SessionID, *replay.Ticket)
		}
		history := pub.NumberDrawnHistory{Drawn: make([]pub.NumberDrawn, 0, len(replay.Drawn))}
		for _, d := range replay.Drawn {
			history.Drawn = append(history.Drawn, pub.NumberDrawn{Number: d.Number, Order: d.Order})
		}
		b.toConn(c.ID(), pub.EventNumberDrawnHistory, history)
	})
}

// Disconnect tears down connID after its transport closed. A player keeps their seat
// and the room hears they dropped; the host simply goes away.
func (b *Broadcaster) Disconnect(ctx context.Context, connID string) {
	b.mu.Lock()
	delete(b.conns, connID)
	b.mu.Unlock()

	info, ok := b.reg.Remove(connID)
	if !ok {
		return
	}
	b.log.Debug("connection detached",
		zap.String("conn_id", connID), zap.String("room_code", info.RoomCode), zap.Int("live", b.reg.Len()))
	if info.IsHost {
		return
	}

	err := b.members.DisconnectPlayer(ctx, info.RoomCode, info.UserID, connID, func(m game.Member) {
		b.toGroup(m.RoomCode, pub.EventParticipantDisconnected, pub.Disconnected{Nickname: m.Nickname})
	})
	if err != nil {
		b.log.Warn("disconnect bookkeeping failed",
			zap.String("conn_id", connID), zap.String("room_code", info.RoomCode), zap.Error(err))
	}
}

// Leave removes the calling player from their room.
func (b *Broadcaster) Leave(ctx context.Context, connID string) error {
	info, ok := b.reg.Get(connID)
	if !ok || info.IsHost {
		return errNotJoined
	}
	return b.members.Leave(ctx, info.RoomCode, info.UserID, func(m game.Member) {
		b.reg.Remove(connID)
		b.toGroup(m.RoomCode, pub.EventParticipantLeft, pub.Participant{Nickname: m.Nickname, Count: m.Count})
	})
}

// Kick removes playerID on behalf of the host bound to connID. The kicked connection
// hears about it before it leaves the group.
func (b *Broadcaster) Kick(ctx context.Context, connID, code string, playerID uuid.UUID) error {
	info, ok := b.reg.Get(connID)
	if !ok || !info.IsHost || info.RoomCode != code {
		return apperr.ErrNotHost
	}
	return b.members.Kick(ctx, code, info.UserID, playerID, func(m game.Member) {
		if target, ok := b.reg.ConnectionFor(m.UserID); ok {
			b.toConn(target, pub.EventKicked, pub.Kicked{RoomCode: m.RoomCode, Message: kickMessage})
			b.reg.Remove(target)
		}
		b.toGroup(m.RoomCode, pub.EventParticipantLeft, pub.Participant{Nickname: m.Nickname, Count: m.Count})
	})
}

// Mark updates the marked set of a ticket for the player bound to connID.
func (b *Broadcaster) Mark(ctx context.Context, connID string, ticketID uuid.UUID, number int, marked bool) error {
	info, ok := b.reg.Get(connID)
	if !ok || info.IsHost {
		return errNotJoined
	}
	res, err := b.members.MarkNumber(ctx, info.RoomCode, ticketID, number, marked)
	if err != nil {
		return err
	}
	b.toConn(connID, pub.EventMarked, pub.Marked{TicketID: res.TicketID.String(), Marked: res.Marked})
	return nil
}

// SendError reports err to connID only.
func (b *Broadcaster) SendError(connID string, err error) {
	b.toConn(connID, pub.EventError, pub.Error{Error: apperr.CodeOf(err), Message: apperr.MessageOf(err)})
}

func (b *Broadcaster) GameStarted(code string, res game.StartResult) {
	for _, t := range res.Tickets {
		connID, ok := b.reg.ConnectionFor(t.PlayerID)
		if !ok {
			continue
		}
		if info, ok := b.reg.Get(connID); !ok || info.RoomCode != code {
			continue
		}
		b.sendTicket(connID, res.SessionID, t)
	}
}

func (b *Broadcaster) NumberDrawn(code string, res game.DrawResult) {
	b.toGroup(code, pub.EventNumberDrawn, pub.NumberDrawn{Number: res.Number, Order: res.Order})
}

func (b *Broadcaster) ClaimResolved(code string, res game.ClaimResult) {
	b.toGroup(code, pub.EventClaimResult, pub.ClaimResult{
		Nickname: res.Nickname,
		Valid:    res.Valid,
		Row:      res.Row,
		Message:  res.Message,
	})
}

func (b *Broadcaster) GameEnded(code string, res game.EndResult) {
	b.toGroup(code, pub.EventGameEnded, pub.GameEnded{WinnerNickname: res.WinnerNickname, TotalDrawn: res.TotalDrawn})
}

func (b *Broadcaster) RoomClosed(code string, res game.CloseResult) {
	b.toGroup(code, pub.EventRoomClosed, pub.RoomClosed{RoomCode: res.RoomCode, ClosedAt: res.ClosedAt.Format(time.RFC3339)})
}

func (b *Broadcaster) StatusChanged(code string, status engine.RoomStatus) {
	b.toGroup(code, pub.EventRoomStatusChanged, pub.StatusChanged{Status: string(status)})
}

func (b *Broadcaster) sendTicket(connID string, sessionID uuid.UUID, t game.PlayerTicket) {
	grid, err := json.Marshal(t.Grid)
	if err != nil {
		b.log.Error("encode ticket", zap.String("conn_id", connID), zap.Error(err))
		return
	}
	b.toConn(connID, pub.EventGameStarted, pub.GameStarted{
		SessionID: sessionID.String(),
		TicketID:  t.TicketID.String(),
		Ticket:    grid,
	})
}

// drop closes a connection superseded by a newer one for the same player. The registry
// has already let go of it.
func (b *Broadcaster) drop(connID string) {
	b.mu.Lock()
	c := b.conns[connID]
	delete(b.conns, connID)
	b.mu.Unlock()
	if c != nil {
		c.Close()
	}
}

// GroupSize is the number of connections receiving code's broadcasts.
func (b *Broadcaster) GroupSize(code string) int {
	return len(b.reg.ListByRoom(code))
}

func encode(event string, data any) ([]byte, error) {
	return json.Marshal(types.ServerMessage{Type: event, Data: data})
}

func (b *Broadcaster) toConn(connID, event string, data any) {
	msg, err := encode(event, data)
	if err != nil {
		b.log.Error("encode event", zap.String("event", event), zap.Error(err))
		return
	}
	b.mu.RLock()
	c := b.conns[connID]
	b.mu.RUnlock()
	if c == nil {
		return
	}
	if !c.Send(msg) {
		b.log.Warn("dropped message to slow connection", zap.String("conn_id", connID), zap.String("event", event))
	}
}

// toGroup fans out to every connection the registry has in code. A recipient whose buffer is full
// misses the message; nobody else is affected.
func (b *Broadcaster) toGroup(code, event string, data any) {
	msg, err := encode(event, data)
	if err != nil {
		b.log.Error("encode event", zap.String("event", event), zap.Error(err))
		return
	}

	members := b.reg.ListByRoom(code)
	targets := make([]Conn, 0, len(members))
	b.mu.RLock()
	for _, m := range members {
		if c := b.conns[m.ConnID]; c != nil {
			targets = append(targets, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range targets {
		if !c.Send(msg) {
			b.log.Warn("dropped message to slow connection",
				zap.String("conn_id", c.ID()), zap.String("room_code", code), zap.String("event", event))
		}
	}
}
