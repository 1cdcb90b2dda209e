// Package memstore is an in-process implementation of store.Store. It backs the server
// when no DATABASE_URL is configured and every test that needs persistence.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/DoyleJ11/loto-backend/internal/models"
	"github.com/DoyleJ11/loto-backend/internal/store"
	"github.com/google/uuid"
)

type dataset struct {
	rooms    map[uuid.UUID]models.Room
	players  map[uuid.UUID]models.RoomPlayer
	sessions map[uuid.UUID]models.GameSession
	tickets  map[uuid.UUID]models.Ticket
	drawn    map[uuid.UUID]models.DrawnNumber

	// Set while Atomic runs. Stored rows are never mutated in place, so keeping the
	// replaced value is enough to restore it.
	journaling bool
	undo       []func()
}

func newDataset() *dataset {
	return &dataset{
		rooms:    make(map[uuid.UUID]models.Room),
		players:  make(map[uuid.UUID]models.RoomPlayer),
		sessions: make(map[uuid.UUID]models.GameSession),
		tickets:  make(map[uuid.UUID]models.Ticket),
		drawn:    make(map[uuid.UUID]models.DrawnNumber),
	}
}

// put writes m[k] = v. Inside a unit of work the row it replaces is journaled first.
func put[V any](d *dataset, m map[uuid.UUID]V, k uuid.UUID, v V) {
	remember(d, m, k)
	m[k] = v
}

func remove[V any](d *dataset, m map[uuid.UUID]V, k uuid.UUID) {
	remember(d, m, k)
	delete(m, k)
}

func remember[V any](d *dataset, m map[uuid.UUID]V, k uuid.UUID) {
	if !d.journaling {
		return
	}
	old, existed := m[k]
	d.undo = append(d.undo, func() {
		if existed {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
}

// rollback undoes the journaled writes, newest first.
func (d *dataset) rollback() {
	for i := len(d.undo) - 1; i >= 0; i-- {
		d.undo[i]()
	}
}

// Store keeps every table behind one mutex. Atomic holds it for the whole unit of work
// and undoes the rows fn touched when it fails.
type Store struct {
	mu  sync.Mutex
	d   *dataset
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{d: newDataset(), now: time.Now}
}

// view routes repository calls either through the store lock or, inside Atomic,
// straight to the locked dataset.
type view struct {
	s      *Store
	locked bool
}

func (v view) do(ctx context.Context, fn func(d *dataset) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !v.locked {
		v.s.mu.Lock()
		defer v.s.mu.Unlock()
	}
	return fn(v.s.d)
}

func (s *Store) Rooms() store.Rooms        { return roomRepo{view{s: s}} }
func (s *Store) Sessions() store.Sessions  { return sessionRepo{view{s: s}} }
func (s *Store) Tickets() store.Tickets    { return ticketRepo{view{s: s}} }
func (s *Store) Drawn() store.DrawnNumbers { return drawnRepo{view{s: s}} }
func (s *Store) Players() store.Players    { return playerRepo{view{s: s}} }
func (s *Store) Close() error              { return nil }

type txRepos struct{ v view }

func (t txRepos) Rooms() store.Rooms        { return roomRepo{t.v} }
func (t txRepos) Sessions() store.Sessions  { return sessionRepo{t.v} }
func (t txRepos) Tickets() store.Tickets    { return ticketRepo{t.v} }
func (t txRepos) Drawn() store.DrawnNumbers { return drawnRepo{t.v} }
func (t txRepos) Players() store.Players    { return playerRepo{t.v} }

func (s *Store) Atomic(ctx context.Context, fn func(tx store.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.d.journaling = true
	defer func() {
		s.d.journaling = false
		s.d.undo = nil
	}()

	err := fn(txRepos{view{s: s, locked: true}})
	if err == nil {
		// A unit of work whose context died mid-way is discarded as a whole.
		err = ctx.Err()
	}
	if err != nil {
		s.d.rollback()
		return err
	}
	return nil
}

func cloneRoom(r models.Room) models.Room {
	if r.ClosedAt != nil {
		t := *r.ClosedAt
		r.ClosedAt = &t
	}
	return r
}

func cloneSession(s models.GameSession) models.GameSession {
	if s.EndedAt != nil {
		t := *s.EndedAt
		s.EndedAt = &t
	}
	if s.WinnerPlayerID != nil {
		id := *s.WinnerPlayerID
		s.WinnerPlayerID = &id
	}
	if s.WinnerRow != nil {
		row := *s.WinnerRow
		s.WinnerRow = &row
	}
	return s
}

func cloneTicket(t models.Ticket) models.Ticket {
	t.MarkedNumbers = slices.Clone(t.MarkedNumbers)
	return t
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func ensureTime(t *time.Time, now func() time.Time) {
	if t.IsZero() {
		*t = now().UTC()
	}
}
