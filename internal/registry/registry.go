// Package registry indexes live transport connections by connection id, by player and by
// room. It is an in-memory cache rebuilt from connections as they join; nothing in it is
// persisted.
package registry

import (
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Info is the membership bound to one connection. For the host, UserID is the host id
// and Nickname is empty.
type Info struct {
	ConnID   string
	RoomCode string
	UserID   uuid.UUID
	Nickname string
	IsHost   bool
}

type Registry struct {
	mu       sync.RWMutex
	byConn   map[string]Info
	byPlayer map[uuid.UUID]string
	byRoom   map[string]map[string]struct{}
}

func New() *Registry {
	return &Registry{
		byConn:   make(map[string]Info),
		byPlayer: make(map[uuid.UUID]string),
		byRoom:   make(map[string]map[string]struct{}),
	}
}

// Add upserts info. When a non-host player is already bound to a different connection,
// that older entry is dropped and its id returned so the caller can detach it.
func (r *Registry) Add(info Info) (superseded string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConn[info.ConnID]; ok {
		r.removeLocked(info.ConnID)
	}
	if !info.IsHost {
		if prev, ok := r.byPlayer[info.UserID]; ok && prev != info.ConnID {
			r.removeLocked(prev)
			superseded = prev
		}
		r.byPlayer[info.UserID] = info.ConnID
	}

	r.byConn[info.ConnID] = info
	group := r.byRoom[info.RoomCode]
	if group == nil {
		group = make(map[string]struct{})
		r.byRoom[info.RoomCode] = group
	}
	group[info.ConnID] = struct{}{}
	return superseded
}

// Remove deletes the entry for connID and returns it. Removing an unknown id is a no-op.
func (r *Registry) Remove(connID string) (Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(connID)
}

func (r *Registry) removeLocked(connID string) (Info, bool) {
	info, ok := r.byConn[connID]
	if !ok {
		return Info{}, false
	}
	delete(r.byConn, connID)
	if !info.IsHost && r.byPlayer[info.UserID] == connID {
		delete(r.byPlayer, info.UserID)
	}
	if group := r.byRoom[info.RoomCode]; group != nil {
		delete(group, connID)
		if len(group) == 0 {
			delete(r.byRoom, info.RoomCode)
		}
	}
	return info, true
}

func (r *Registry) Get(connID string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.byConn[connID]
	return info, ok
}

// ListByRoom returns the room's entries ordered by connection id.
func (r *Registry) ListByRoom(roomCode string) []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	group := r.byRoom[roomCode]
	out := make([]Info, 0, len(group))
	for id := range group {
		out = append(out, r.byConn[id])
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.ConnID, b.ConnID) })
	return out
}

// ConnectionFor returns the live connection bound to a player.
func (r *Registry) ConnectionFor(playerID uuid.UUID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPlayer[playerID]
	return id, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
