package memstore

import (
	"cmp"
	"context"
	"slices"

	"github.com/DoyleJ11/loto-backend/internal/engine"
	"github.com/DoyleJ11/loto-backend/internal/models"
	"github.com/DoyleJ11/loto-backend/internal/store"
	"github.com/google/uuid"
)

type roomRepo struct{ v view }

func (r roomRepo) Create(ctx context.Context, room *models.Room) error {
	return r.v.do(ctx, func(d *dataset) error {
		for _, other := range d.rooms {
			if other.Code == room.Code {
				return store.ErrConflict
			}
		}
		ensureID(&room.ID)
		ensureTime(&room.CreatedAt, r.v.s.now)
		ensureTime(&room.LastActivityAt, r.v.s.now)
		if room.Status == "" {
			room.Status = engine.StatusWaiting
		}
		put(d, d.rooms, room.ID, cloneRoom(*room))
		return nil
	})
}

func (r roomRepo) Update(ctx context.Context, room *models.Room) error {
	return r.v.do(ctx, func(d *dataset) error {
		if _, ok := d.rooms[room.ID]; !ok {
			return store.ErrNotFound
		}
		put(d, d.rooms, room.ID, cloneRoom(*room))
		return nil
	})
}

func (r roomRepo) GetByCode(ctx context.Context, code string) (*models.Room, error) {
	var out *models.Room
	err := r.v.do(ctx, func(d *dataset) error {
		for _, room := range d.rooms {
			if room.Code == code {
				c := cloneRoom(room)
				out = &c
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r roomRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var out *models.Room
	err := r.v.do(ctx, func(d *dataset) error {
		room, ok := d.rooms[id]
		if !ok {
			return store.ErrNotFound
		}
		c := cloneRoom(room)
		out = &c
		return nil
	})
	return out, err
}

func (r roomRepo) ListActiveByHost(ctx context.Context, hostID uuid.UUID) ([]models.Room, error) {
	var out []models.Room
	err := r.v.do(ctx, func(d *dataset) error {
		for _, room := range d.rooms {
			if room.HostID == hostID && room.Status != engine.StatusFinished {
				out = append(out, cloneRoom(room))
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.Room) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, err
}

type sessionRepo struct{ v view }

func (r sessionRepo) Create(ctx context.Context, s *models.GameSession) error {
	return r.v.do(ctx, func(d *dataset) error {
		if s.EndedAt == nil {
			for _, other := range d.sessions {
				if other.RoomID == s.RoomID && other.EndedAt == nil {
					return store.ErrConflict
				}
			}
		}
		ensureID(&s.ID)
		ensureTime(&s.StartedAt, r.v.s.now)
		put(d, d.sessions, s.ID, cloneSession(*s))
		return nil
	})
}

func (r sessionRepo) Update(ctx context.Context, s *models.GameSession) error {
	return r.v.do(ctx, func(d *dataset) error {
		if _, ok := d.sessions[s.ID]; !ok {
			return store.ErrNotFound
		}
		put(d, d.sessions, s.ID, cloneSession(*s))
		return nil
	})
}

func (r sessionRepo) GetActiveByRoom(ctx context.Context, roomID uuid.UUID) (*models.GameSession, error) {
	var out *models.GameSession
	err := r.v.do(ctx, func(d *dataset) error {
		for _, s := range d.sessions {
			if s.RoomID == roomID && s.EndedAt == nil {
				c := cloneSession(s)
				out = &c
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

type ticketRepo struct{ v view }

func (r ticketRepo) Create(ctx context.Context, t *models.Ticket) error {
	return r.v.do(ctx, func(d *dataset) error {
		for _, other := range d.tickets {
			if other.SessionID == t.SessionID && other.PlayerID == t.PlayerID {
				return store.ErrConflict
			}
		}
		ensureID(&t.ID)
		ensureTime(&t.CreatedAt, r.v.s.now)
		if t.MarkedNumbers == nil {
			t.MarkedNumbers = []int{}
		}
		put(d, d.tickets, t.ID, cloneTicket(*t))
		return nil
	})
}

func (r ticketRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var out *models.Ticket
	err := r.v.do(ctx, func(d *dataset) error {
		t, ok := d.tickets[id]
		if !ok {
			return store.ErrNotFound
		}
		c := cloneTicket(t)
		out = &c
		return nil
	})
	return out, err
}

func (r ticketRepo) GetBySessionAndPlayer(ctx context.Context, sessionID, playerID uuid.UUID) (*models.Ticket, error) {
	var out *models.Ticket
	err := r.v.do(ctx, func(d *dataset) error {
		for _, t := range d.tickets {
			if t.SessionID == sessionID && t.PlayerID == playerID {
				c := cloneTicket(t)
				out = &c
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r ticketRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Ticket, error) {
	var out []models.Ticket
	err := r.v.do(ctx, func(d *dataset) error {
		for _, t := range d.tickets {
			if t.SessionID == sessionID {
				out = append(out, cloneTicket(t))
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.Ticket) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, err
}

func (r ticketRepo) UpdateMarked(ctx context.Context, id uuid.UUID, marked []int) error {
	return r.v.do(ctx, func(d *dataset) error {
		t, ok := d.tickets[id]
		if !ok {
			return store.ErrNotFound
		}
		t.MarkedNumbers = slices.Clone(marked)
		put(d, d.tickets, id, t)
		return nil
	})
}

type drawnRepo struct{ v view }

func (r drawnRepo) Create(ctx context.Context, dn *models.DrawnNumber) error {
	return r.v.do(ctx, func(d *dataset) error {
		for _, other := range d.drawn {
			if other.SessionID != dn.SessionID {
				continue
			}
			if other.Number == dn.Number || other.DrawOrder == dn.DrawOrder {
				return store.ErrConflict
			}
		}
		ensureID(&dn.ID)
		ensureTime(&dn.DrawnAt, r.v.s.now)
		put(d, d.drawn, dn.ID, *dn)
		return nil
	})
}

func (r drawnRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.DrawnNumber, error) {
	var out []models.DrawnNumber
	err := r.v.do(ctx, func(d *dataset) error {
		for _, dn := range d.drawn {
			if dn.SessionID == sessionID {
				out = append(out, dn)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.DrawnNumber) int { return cmp.Compare(a.DrawOrder, b.DrawOrder) })
	return out, err
}

func (r drawnRepo) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	n := 0
	err := r.v.do(ctx, func(d *dataset) error {
		for _, dn := range d.drawn {
			if dn.SessionID == sessionID {
				n++
			}
		}
		return nil
	})
	return n, err
}

type playerRepo struct{ v view }

func (r playerRepo) Create(ctx context.Context, p *models.RoomPlayer) error {
	return r.v.do(ctx, func(d *dataset) error {
		for _, other := range d.players {
			if other.RoomID == p.RoomID && other.NicknameKey == p.NicknameKey {
				return store.ErrConflict
			}
		}
		ensureID(&p.ID)
		ensureTime(&p.JoinedAt, r.v.s.now)
		put(d, d.players, p.ID, *p)
		return nil
	})
}

func (r playerRepo) Update(ctx context.Context, p *models.RoomPlayer) error {
	return r.v.do(ctx, func(d *dataset) error {
		if _, ok := d.players[p.ID]; !ok {
			return store.ErrNotFound
		}
		put(d, d.players, p.ID, *p)
		return nil
	})
}

func (r playerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.v.do(ctx, func(d *dataset) error {
		if _, ok := d.players[id]; !ok {
			return store.ErrNotFound
		}
		remove(d, d.players, id)
		return nil
	})
}

func (r playerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.RoomPlayer, error) {
	var out *models.RoomPlayer
	err := r.v.do(ctx, func(d *dataset) error {
		p, ok := d.players[id]
		if !ok {
			return store.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r playerRepo) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]models.RoomPlayer, error) {
	var out []models.RoomPlayer
	err := r.v.do(ctx, func(d *dataset) error {
		for _, p := range d.players {
			if p.RoomID == roomID {
				out = append(out, p)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.RoomPlayer) int { return a.JoinedAt.Compare(b.JoinedAt) })
	return out, err
}

func (r playerRepo) CountByRoom(ctx context.Context, roomID uuid.UUID) (int, error) {
	n := 0
	err := r.v.do(ctx, func(d *dataset) error {
		for _, p := range d.players {
			if p.RoomID == roomID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r playerRepo) NicknameExists(ctx context.Context, roomID uuid.UUID, nicknameKey string) (bool, error) {
	found := false
	err := r.v.do(ctx, func(d *dataset) error {
		for _, p := range d.players {
			if p.RoomID == roomID && p.NicknameKey == nicknameKey {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}
