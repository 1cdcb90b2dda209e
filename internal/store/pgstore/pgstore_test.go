package pgstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/DoyleJ11/loto-backend/internal/engine"
	"github.com/DoyleJ11/loto-backend/internal/models"
	"github.com/DoyleJ11/loto-backend/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"record not found", gorm.ErrRecordNotFound, store.ErrNotFound},
		{"wrapped not found", fmt.Errorf("first: %w", gorm.ErrRecordNotFound), store.ErrNotFound},
		{"duplicated key", gorm.ErrDuplicatedKey, store.ErrConflict},
		{"pg unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "idx_room_nickname"}, store.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}

	other := &pgconn.PgError{Code: "40001"}
	assert.Same(t, error(other), translate(other))
	plain := errors.New("conn reset")
	assert.Equal(t, plain, translate(plain))
}

// openTestStore connects to LOTO_TEST_DATABASE_URL; the integration tests are skipped
// without it.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("LOTO_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LOTO_TEST_DATABASE_URL not set")
	}
	s, err := Open(context.Background(), dsn, Options{MaxOpenConns: 4, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func randomCode() string {
	return fmt.Sprintf("%06d", uuid.New().ID()%1000000)
}

func TestIntegration_RoomLifecycleAndConstraints(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	room := &models.Room{Code: randomCode(), HostID: uuid.New(), MaxPlayers: 5}
	require.NoError(t, s.Rooms().Create(ctx, room))

	dup := &models.Room{Code: room.Code, HostID: uuid.New(), MaxPlayers: 5}
	assert.ErrorIs(t, s.Rooms().Create(ctx, dup), store.ErrConflict)

	p := &models.RoomPlayer{RoomID: room.ID, Nickname: "Lan", NicknameKey: "lan"}
	require.NoError(t, s.Players().Create(ctx, p))
	clash := &models.RoomPlayer{RoomID: room.ID, Nickname: "LAN", NicknameKey: "lan"}
	assert.ErrorIs(t, s.Players().Create(ctx, clash), store.ErrConflict)

	err := s.Atomic(ctx, func(tx store.Repos) error {
		sess := &models.GameSession{RoomID: room.ID}
		if err := tx.Sessions().Create(ctx, sess); err != nil {
			return err
		}
		room.Status = engine.StatusPlaying
		if err := tx.Rooms().Update(ctx, room); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	got, err := s.Rooms().GetByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusWaiting, got.Status)
	_, err = s.Sessions().GetActiveByRoom(ctx, room.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	sess := &models.GameSession{RoomID: room.ID}
	require.NoError(t, s.Sessions().Create(ctx, sess))
	assert.ErrorIs(t, s.Sessions().Create(ctx, &models.GameSession{RoomID: room.ID}), store.ErrConflict)

	require.NoError(t, s.Drawn().Create(ctx, &models.DrawnNumber{SessionID: sess.ID, Number: 12, DrawOrder: 1}))
	assert.ErrorIs(t, s.Drawn().Create(ctx, &models.DrawnNumber{SessionID: sess.ID, Number: 12, DrawOrder: 2}), store.ErrConflict)
}
