package pgstore

import (
	"context"
	"time"

	"github.com/DoyleJ11/loto-backend/internal/engine"
	"github.com/DoyleJ11/loto-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now().UTC()
	}
}

type roomRepo struct{ db *gorm.DB }

func (r roomRepo) Create(ctx context.Context, room *models.Room) error {
	newID(&room.ID)
	stamp(&room.LastActivityAt)
	if room.Status == "" {
		room.Status = engine.StatusWaiting
	}
	return translate(r.db.WithContext(ctx).Create(room).Error)
}

func (r roomRepo) Update(ctx context.Context, room *models.Room) error {
	return updateAll(r.db.WithContext(ctx), &models.Room{}, room.ID, room)
}

func (r roomRepo) GetByCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&room).Error; err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

func (r roomRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &room, nil
}

func (r roomRepo) ListActiveByHost(ctx context.Context, hostID uuid.UUID) ([]models.Room, error) {
	var rooms []models.Room
	err := r.db.WithContext(ctx).
		Where("host_id = ? AND status <> ?", hostID, engine.StatusFinished).
		Order("created_at DESC").
		Find(&rooms).Error
	return rooms, translate(err)
}

type sessionRepo struct{ db *gorm.DB }

func (r sessionRepo) Create(ctx context.Context, s *models.GameSession) error {
	newID(&s.ID)
	stamp(&s.StartedAt)
	return translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r sessionRepo) Update(ctx context.Context, s *models.GameSession) error {
	return updateAll(r.db.WithContext(ctx), &models.GameSession{}, s.ID, s)
}

func (r sessionRepo) GetActiveByRoom(ctx context.Context, roomID uuid.UUID) (*models.GameSession, error) {
	var s models.GameSession
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND ended_at IS NULL", roomID).
		First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

type ticketRepo struct{ db *gorm.DB }

func (r ticketRepo) Create(ctx context.Context, t *models.Ticket) error {
	newID(&t.ID)
	if t.MarkedNumbers == nil {
		t.MarkedNumbers = datatypes.JSONSlice[int]{}
	}
	return translate(r.db.WithContext(ctx).Create(t).Error)
}

func (r ticketRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var t models.Ticket
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r ticketRepo) GetBySessionAndPlayer(ctx context.Context, sessionID, playerID uuid.UUID) (*models.Ticket, error) {
	var t models.Ticket
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND player_id = ?", sessionID, playerID).
		First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r ticketRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&tickets).Error
	return tickets, translate(err)
}

func (r ticketRepo) UpdateMarked(ctx context.Context, id uuid.UUID, marked []int) error {
	res := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ?", id).
		Update("marked_numbers", datatypes.JSONSlice[int](marked))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

type drawnRepo struct{ db *gorm.DB }

func (r drawnRepo) Create(ctx context.Context, d *models.DrawnNumber) error {
	newID(&d.ID)
	stamp(&d.DrawnAt)
	return translate(r.db.WithContext(ctx).Create(d).Error)
}

func (r drawnRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.DrawnNumber, error) {
	var out []models.DrawnNumber
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("draw_order ASC").
		Find(&out).Error
	return out, translate(err)
}

func (r drawnRepo) CountBySession(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.DrawnNumber{}).Where("session_id = ?", sessionID).Count(&n).Error
	return int(n), translate(err)
}

type playerRepo struct{ db *gorm.DB }

func (r playerRepo) Create(ctx context.Context, p *models.RoomPlayer) error {
	newID(&p.ID)
	stamp(&p.JoinedAt)
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r playerRepo) Update(ctx context.Context, p *models.RoomPlayer) error {
	return updateAll(r.db.WithContext(ctx), &models.RoomPlayer{}, p.ID, p)
}

func (r playerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.RoomPlayer{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r playerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.RoomPlayer, error) {
	var p models.RoomPlayer
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r playerRepo) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]models.RoomPlayer, error) {
	var out []models.RoomPlayer
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("joined_at ASC").
		Find(&out).Error
	return out, translate(err)
}

func (r playerRepo) CountByRoom(ctx context.Context, roomID uuid.UUID) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.RoomPlayer{}).Where("room_id = ?", roomID).Count(&n).Error
	return int(n), translate(err)
}

func (r playerRepo) NicknameExists(ctx context.Context, roomID uuid.UUID, nicknameKey string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.RoomPlayer{}).
		Where("room_id = ? AND nickname_key = ?", roomID, nicknameKey).
		Count(&n).Error
	return n > 0, translate(err)
}
