// Package pgstore implements store.Store on PostgreSQL through gorm.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DoyleJ11/loto-backend/internal/models"
	"github.com/DoyleJ11/loto-backend/internal/store"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const uniqueViolation = "23505"

type Store struct {
	repos
}

var _ store.Store = (*Store)(nil)

type Options struct {
	MaxOpenConns int
	Logger       *zap.Logger
}

// Open connects to dsn and migrates the schema.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("pgstore: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("pgstore: pool: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}

	s := &Store{repos{db: db}}
	if err := s.Migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if opts.Logger != nil {
		opts.Logger.Info("database connected and migrated")
	}
	return s, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	err := db.AutoMigrate(
		&models.Room{},
		&models.RoomPlayer{},
		&models.GameSession{},
		&models.Ticket{},
		&models.DrawnNumber{},
	)
	if err != nil {
		return fmt.Errorf("pgstore: migrate: %w", err)
	}
	// At most one unfinished session per room.
	err = db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_session_active_room
		ON game_sessions (room_id) WHERE ended_at IS NULL`).Error
	if err != nil {
		return fmt.Errorf("pgstore: active session index: %w", err)
	}
	return nil
}

func (s *Store) Atomic(ctx context.Context, fn func(tx store.Repos) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repos{db: tx})
	})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type repos struct{ db *gorm.DB }

func (r repos) Rooms() store.Rooms        { return roomRepo(r) }
func (r repos) Sessions() store.Sessions  { return sessionRepo(r) }
func (r repos) Tickets() store.Tickets    { return ticketRepo(r) }
func (r repos) Drawn() store.DrawnNumbers { return drawnRepo(r) }
func (r repos) Players() store.Players    { return playerRepo(r) }

// translate maps driver failures onto the store sentinels; anything else is returned
// unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

// updateAll writes every column of row, including zero values, and reports
// store.ErrNotFound when no row has that id.
func updateAll(db *gorm.DB, model any, id any, row any) error {
	res := db.Model(model).Where("id = ?", id).Select("*").Updates(row)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
