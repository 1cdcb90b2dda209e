// Package hub owns the set of live room lobbies, keyed by join code.
package hub

import (
	"context"
	"errors"

	"github.com/DoyleJ11/loto-backend/internal/lobby"
	"go.uber.org/zap"
)

var ErrStopped = errors.New("hub: stopped")

type HubMsg interface{ isHubMsg() }

type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// EnsureLobby returns the lobby for Code, starting one if none is running.
type EnsureLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// RemoveLobby stops the lobby for Code and forgets it.
type RemoveLobby struct {
	Code string
}

type ShutdownHub struct{}

func (GetLobby) isHubMsg()    {}
func (EnsureLobby) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHub(parent context.Context, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub and all of its lobbies have stopped accepting work.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetLobby:
				msg.Reply <- h.lobbies[msg.Code] // May be nil

			case EnsureLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					select {
					case <-lb.Done():
						// Stopped on its own; replace it below.
					default:
						msg.Reply <- lb
						continue
					}
				}
				lb := lobby.NewLobby(h.ctx, msg.Code, h.log)
				h.lobbies[msg.Code] = lb
				msg.Reply <- lb

			case RemoveLobby:
				if lb := h.lobbies[msg.Code]; lb != nil {
					lb.Close()
					delete(h.lobbies, msg.Code)
				}

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for code, lb := range h.lobbies {
		lb.Close()
		delete(h.lobbies, code)
	}
}

func (h *Hub) request(ctx context.Context, msg HubMsg, reply chan *lobby.Lobby) (*lobby.Lobby, error) {
	select {
	case h.inbox <- msg:
	case <-h.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case lb := <-reply:
		return lb, nil
	case <-h.done:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ensure is the blocking form of EnsureLobby.
func (h *Hub) Ensure(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	return h.request(ctx, EnsureLobby{Code: code, Reply: reply}, reply)
}

// Get returns the running lobby for code, or nil.
func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	return h.request(ctx, GetLobby{Code: code, Reply: reply}, reply)
}

// Remove is fire-and-forget; it is safe to call from inside a lobby job.
func (h *Hub) Remove(code string) {
	select {
	case h.inbox <- RemoveLobby{Code: code}:
	case <-h.done:
	}
}

func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.done:
	}
	<-h.done
}
