package game

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/DoyleJ11/loto-backend/internal/apperr"
	"github.com/DoyleJ11/loto-backend/internal/engine"
	"github.com/DoyleJ11/loto-backend/internal/hub"
	"github.com/DoyleJ11/loto-backend/internal/store/memstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recorder struct {
	mu     sync.Mutex
	events []string
	draws  []DrawResult
	starts []StartResult
	claims []ClaimResult
}

func (r *recorder) add(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) GameStarted(_ string, res StartResult) {
	r.mu.Lock()
	r.starts = append(r.starts, res)
	r.mu.Unlock()
	r.add("game_started")
}

func (r *recorder) NumberDrawn(_ string, res DrawResult) {
	r.mu.Lock()
	r.draws = append(r.draws, res)
	r.mu.Unlock()
	r.add("number_drawn")
}

func (r *recorder) ClaimResolved(_ string, res ClaimResult) {
	r.mu.Lock()
	r.claims = append(r.claims, res)
	r.mu.Unlock()
	r.add("claim_result")
}

func (r *recorder) GameEnded(string, EndResult) { r.add("game_ended") }
func (r *recorder) RoomClosed(string, CloseResult) { r.add("room_closed") }
func (r *recorder) StatusChanged(_ string, s engine.RoomStatus) { r.add("status:" + string(s)) }

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

func newTestCoordinator(t *testing.T, maxPlayers int) (*Coordinator, *recorder) {
	t.Helper()
	log := zaptest.NewLogger(t)
	h := hub.NewHub(context.Background(), log)
	t.Cleanup(h.Shutdown)

	c := NewCoordinator(memstore.New(), h, engine.NewLockedSource(1), Config{MaxPlayers: maxPlayers}, log)
	rec := &recorder{}
	c.SetNotifier(rec)
	return c, rec
}

func openRoom(t *testing.T, c *Coordinator, host uuid.UUID, nicknames ...string) (string, []uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	room, err := c.CreateRoom(ctx, host)
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(nicknames))
	for _, n := range nicknames {
		j, err := c.JoinRoom(ctx, room.Code, n)
		require.NoError(t, err)
		ids = append(ids, j.PlayerID)
	}
	return room.Code, ids
}

func TestScenario_FullGame(t *testing.T) {
	c, rec := newTestCoordinator(t, 5)
	ctx := context.Background()
	host := uuid.New()

	room, err := c.CreateRoom(ctx, host)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusWaiting, room.Status)
	assert.Equal(t, 5, room.MaxPlayers)
	assert.Len(t, room.Code, CodeLength)

	for _, n := range []string{"An", "Binh", "Chi"} {
		_, err := c.JoinRoom(ctx, room.Code, n)
		require.NoError(t, err)
	}
	_, err = c.JoinRoom(ctx, room.Code, "  an ")
	require.ErrorIs(t, err, apperr.ErrNicknameTaken)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	started, err := c.Start(ctx, host, room.Code)
	require.NoError(t, err)
	require.Len(t, started.Tickets, 3)
	assert.Equal(t, 3, started.PlayerCount)
	for _, tk := range started.Tickets {
		require.NoError(t, tk.Grid.Validate())
	}

	var seen []int
	for i := 1; i <= engine.PoolSize; i++ {
		d, err := c.Draw(ctx, host, room.Code)
		require.NoError(t, err, "draw %d", i)
		assert.Equal(t, i, d.Order)
		assert.Equal(t, engine.PoolSize-i, d.Remaining)
		assert.NotContains(t, seen, d.Number)
		seen = append(seen, d.Number)
		assert.True(t, slices.IsSorted(d.AllDrawn))
	}
	_, err = c.Draw(ctx, host, room.Code)
	require.ErrorIs(t, err, apperr.ErrAllDrawn)
	assert.Equal(t, apperr.KindTerminal, apperr.KindOf(err))

	claim, err := c.Claim(ctx, room.Code, started.Tickets[0].TicketID, 4)
	require.NoError(t, err)
	assert.True(t, claim.Valid)
	assert.Equal(t, started.Tickets[0].Nickname, claim.Nickname)

	_, err = c.Claim(ctx, room.Code, started.Tickets[1].TicketID, 0)
	require.ErrorIs(t, err, apperr.ErrGameEnded)

	info, err := c.RoomInfo(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusFinished, info.Status)

	events := rec.snapshot()
	assert.Equal(t, "game_started", events[0])
	assert.Equal(t, "status:playing", events[1])
	assert.Equal(t, []string{"claim_result", "game_ended", "status:finished"}, events[len(events)-3:])
}

func TestHostOnlyActions_ForbiddenInEveryStatus(t *testing.T) {
	c, _ := newTestCoordinator(t, 5)
	ctx := context.Background()
	host, stranger := uuid.New(), uuid.New()

	waiting, _ := openRoom(t, c, host, "An")

	playingHost := uuid.New()
	playing, _ := openRoom(t, c, playingHost, "An")
	_, err := c.Start(ctx, playingHost, playing)
	require.NoError(t, err)

	finishedHost := uuid.New()
	finished, _ := openRoom(t, c, finishedHost, "An")
	_, err = c.Close(ctx, finishedHost, finished)
	require.NoError(t, err)

	actions := map[string]func(code string) error{
		"start": func(code string) error { _, err := c.Start(ctx, stranger, code); return err },
		"draw":  func(code string) error { _, err := c.Draw(ctx, stranger, code); return err },
		"end":   func(code string) error { _, err := c.End(ctx, stranger, code); return err },
		"close": func(code string) error { _, err := c.Close(ctx, stranger, code); return err },
		"state": func(code string) error { _, err := c.State(ctx, stranger, code); return err },
	}
	for _, code := range []string{waiting, playing, finished} {
		for name, act := range actions {
			t.Run(code+"/"+name, func(t *testing.T) {
				err := act(code)
				assert.ErrorIs(t, err, apperr.ErrNotHost)
				assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
			})
		}
	}
}

func TestDraw_ConcurrentCallsGetDistinctOrders(t *testing.T) {
	c, _ := newTestCoordinator(t, 5)
	ctx := context.Background()
	host := uuid.New()
	code, _ := openRoom(t, c, host, "An")
	_, err := c.Start(ctx, host, code)
	require.NoError(t, err)

	const n = 30
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		orders []int
		nums   []int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := c.Draw(ctx, host, code)
			if err != nil {
				t.Errorf("draw: %v", err)
				return
			}
			mu.Lock()
			orders = append(orders, d.Order)
			nums = append(nums, d.Number)
			mu.Unlock()
		}()
	}
	wg.Wait()

	slices.Sort(orders)
	want := make([]int, n)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, orders)
	slices.Sort(nums)
	assert.Len(t, slices.Compact(nums), n)

	state, err := c.State(ctx, host, code)
	require.NoError(t, err)
	assert.Equal(t, n, state.DrawnCount)
	require.NotNil(t, state.LastNumber)
	assert.Equal(t, state.AllDrawn[n-1], *state.LastNumber)
}

func TestClaim_InvalidHasNoSideEffects(t *testing.T) {
	c, rec := newTestCoordinator(t, 5)
	ctx := context.Background()
	host := uuid.New()
	code, _ := openRoom(t, c, host, "An", "Binh")
	started, err := c.Start(ctx, host, code)
	require.NoError(t, err)

	claim, err := c.Claim(ctx, code, started.Tickets[0].TicketID, 0)
	require.NoError(t, err)
	assert.False(t, claim.Valid)
	assert.Len(t, claim.Missing, engine.NumbersPerRow)
	assert.Equal(t, msgClaimInvalid, claim.Message)

	info, err := c.RoomInfo(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusPlaying, info.Status)

	// Claims may be repeated; the game is still running.
	_, err = c.Draw(ctx, host, code)
	require.NoError(t, err)
	require.Len(t, rec.claims, 1)
}

func TestClaim_Guards(t *testing.T) {
	c, _ := newTestCoordinator(t, 5)
	ctx := context.Background()
	host := uuid.New()
	code, _ := openRoom(t, c, host, "An")

	_, err := c.Claim(ctx, code, uuid.New(), 0)
	assert.ErrorIs(t, err, apperr.ErrGameNotStarted)

	started, err := c.Start(ctx, host, code)
	require.NoError(t, err)
	ticket := started.Tickets[0].TicketID

	tests := []struct {
		name   string
		ticket uuid.UUID
		row    int
		want   *apperr.Error
	}{
		{"row below range", ticket, -1, apperr.ErrInvalidRow},
		{"row above range", ticket, engine.Rows, apperr.ErrInvalidRow},
		{"unknown ticket", uuid.New(), 0, apperr.ErrTicketNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Claim(ctx, code, tt.ticket, tt.row)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	otherHost := uuid.New()
	other, _ := openRoom(t, c, otherHost, "Dung")
	otherStart, err := c.Start(ctx, otherHost, other)
	require.NoError(t, err)
	_, err = c.Claim(ctx, code, otherStart.Tickets[0].TicketID, 0)
	assert.ErrorIs(t, err, apperr.ErrTicketNotInGame)
}

func TestJoinRoom_Guards(t *testing.T) {
	c, _ := newTestCoordinator(t, 2)
	ctx := context.Background()
	host := uuid.New()
	code, _ := openRoom(t, c, host, "An", "Binh")

	_, err := c.JoinRoom(ctx, code, "Chi")
	assert.ErrorIs(t, err, apperr.ErrRoomFull)

	_, err = c.JoinRoom(ctx, code, "   ")
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	_, err = c.JoinRoom(ctx, "999999", "Chi")
	assert.ErrorIs(t, err, apperr.ErrRoomNotFound)
	_, err = c.JoinRoom(ctx, "not-a-code", "Chi")
	assert.ErrorIs(t, err, apperr.ErrRoomNotFound)

	_, err = c.Start(ctx, host, code)
	require.NoError(t, err)
	_, err = c.JoinRoom(ctx, code, "Chi")
	assert.ErrorIs(t, err, apperr.ErrGameStarted)

	_, err = c.Close(ctx, host, code)
	require.NoError(t, err)
	_, err = c.JoinRoom(ctx, code, "Chi")
	assert.ErrorIs(t, err, apperr.ErrRoomClosed)
}

func TestStartEndClose_StatusGuards(t *testing.T) {
	c, rec := newTestCoordinator(t, 5)
	ctx := context.Background()
	host := uuid.New()

	empty, _ := openRoom(t, c, host)
	_, err := c.Start(ctx, host, empty)
	assert.ErrorIs(t, err, apperr.ErrNoPlayers)
	_, err = c.Draw(ctx, host, empty)
	assert.ErrorIs(t, err, apperr.ErrGameNotStarted)
	_, err = c.End(ctx, host, empty)
	assert.ErrorIs(t, err, apperr.ErrGameNotStarted)

	closed, err := c.Close(ctx, host, empty)
	require.NoError(t, err)
	assert.False(t, closed.ClosedAt.IsZero())
	_, err = c.Close(ctx, host, empty)
	assert.ErrorIs(t, err, apperr.ErrRoomClosed)
	assert.Contains(t, rec.snapshot(), "room_closed")

	code, _ := openRoom(t, c, host, "An")
	_, err = c.Start(ctx, host, code)
	require.NoError(t, err)
	_, err = c.Start(ctx, host, code)
	assert.ErrorIs(t, err, apperr.ErrGameStarted)
	_, err = c.Draw(ctx, host, code)
	require.NoError(t, err)

	ended, err := c.End(ctx, host, code)
	require.NoError(t, err)
	assert.Equal(t, 1, ended.TotalDrawn)
	assert.Nil(t, ended.WinnerNickname)

	_, err = c.Draw(ctx, host, code)
	assert.ErrorIs(t, err, apperr.ErrGameEnded)
	_, err = c.End(ctx, host, code)
	assert.ErrorIs(t, err, apperr.ErrGameEnded)
}

func TestCreateRoom_ReturnsExistingOpenRoom(t *testing.T) {
	c, _ := newTestCoordinator(t, 5)
	ctx := context.Background()
	host := uuid.New()

	first, err := c.CreateRoom(ctx, host)
	require.NoError(t, err)
	again, err := c.CreateRoom(ctx, host)
	require.NoError(t, err)
	assert.True(t, again.Existing)
	assert.Equal(t, first.Code, again.Code)

	active, err := c.ActiveRoom(ctx, host)
	require.NoError(t, err)
	assert.Equal(t, first.Code, active.Code)

	_, err = c.Close(ctx, host, first.Code)
	require.NoError(t, err)
	_, err = c.ActiveRoom(ctx, host)
	assert.ErrorIs(t, err, apperr.ErrRoomNotFound)

	fresh, err := c.CreateRoom(ctx, host)
	require.NoError(t, err)
	assert.False(t, fresh.Existing)
	assert.NotEqual(t, first.Code, fresh.Code)
}

func TestCreateRoom_ConcurrentCallsForOneHostYieldOneRoom(t *testing.T) {
	c, _ := newTestCoordinator(t, 5)
	ctx := context.Background()
	host := uuid.New()

	var wg sync.WaitGroup
	codes := make([]string, 10)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := c.CreateRoom(ctx, host)
			if err != nil {
				t.Errorf("create: %v", err)
				return
			}
			codes[i] = res.Code
		}(i)
	}
	wg.Wait()
	for _, code := range codes {
		assert.Equal(t, codes[0], code)
	}
}

func TestCreateRoom_RetriesCodeCollisions(t *testing.T) {
	c, _ := newTestCoordinator(t, 5)
	ctx := context.Background()

	seq := []string{"111111", "111111", "222222"}
	c.codes = func() (string, error) {
		code := seq[0]
		if len(seq) > 1 {
			seq = seq[1:]
		}
		return code, nil
	}

	a, err := c.CreateRoom(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "111111", a.Code)
	b, err := c.CreateRoom(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, "222222", b.Code)

	// Only "222222" is left to hand out and it is taken.
	_, err = c.CreateRoom(ctx, uuid.New())
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	c.codes = func() (string, error) { return "", errors.New("entropy") }
	_, err = c.CreateRoom(ctx, uuid.New())
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestMarkNumber(t *testing.T) {
	c, _ := newTestCoordinator(t, 5)
	ctx := context.Background()
	host := uuid.New()
	code, _ := openRoom(t, c, host, "An")

	_, err := c.MarkNumber(ctx, code, uuid.New(), 5, true)
	assert.ErrorIs(t, err, apperr.ErrGameNotStarted)

	started, err := c.Start(ctx, host, code)
	require.NoError(t, err)
	tk := started.Tickets[0]
	nums := tk.Grid.Numbers()
	missing := 0
	for n := engine.MinNumber; n <= engine.MaxNumber; n++ {
		if !tk.Grid.Contains(n) {
			missing = n
			break
		}
	}

	res, err := c.MarkNumber(ctx, code, tk.TicketID, nums[3], true)
	require.NoError(t, err)
	assert.Equal(t, []int{nums[3]}, res.Marked)

	res, err = c.MarkNumber(ctx, code, tk.TicketID, nums[0], true)
	require.NoError(t, err)
	assert.True(t, slices.IsSorted(res.Marked))
	assert.Len(t, res.Marked, 2)

	res, err = c.MarkNumber(ctx, code, tk.TicketID, nums[0], true)
	require.NoError(t, err)
	assert.Len(t, res.Marked, 2, "marking twice is idempotent")

	res, err = c.MarkNumber(ctx, code, tk.TicketID, nums[3], false)
	require.NoError(t, err)
	assert.Equal(t, []int{nums[0]}, res.Marked)

	_, err = c.MarkNumber(ctx, code, tk.TicketID, missing, true)
	assert.ErrorIs(t, err, apperr.ErrNumberNotOnTicket)
	_, err = c.MarkNumber(ctx, code, tk.TicketID, 91, true)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestCancelledContext_LeavesNoPartialDraw(t *testing.T) {
	c, _ := newTestCoordinator(t, 5)
	ctx := context.Background()
	host := uuid.New()
	code, _ := openRoom(t, c, host, "An")
	_, err := c.Start(ctx, host, code)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = c.Draw(cancelled, host, code)
	require.ErrorIs(t, err, context.Canceled)

	state, err := c.State(ctx, host, code)
	require.NoError(t, err)
	assert.Zero(t, state.DrawnCount)
}

func TestFinishedRoom_LeavesNoLobbyBehind(t *testing.T) {
	for round := 0; round < 5; round++ {
		c, _ := newTestCoordinator(t, 5)
		ctx := context.Background()
		host := uuid.New()
		code, _ := openRoom(t, c, host, "An")
		started, err := c.Start(ctx, host, code)
		require.NoError(t, err)
		for i := 0; i < engine.PoolSize; i++ {
			_, err := c.Draw(ctx, host, code)
			require.NoError(t, err)
		}

		// Draws race the winning claim; those queued behind it find the lobby gone.
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := c.Draw(ctx, host, code)
				assert.Equal(t, apperr.KindTerminal, apperr.KindOf(err))
			}()
		}
		res, err := c.Claim(ctx, code, started.Tickets[0].TicketID, 0)
		require.NoError(t, err)
		require.True(t, res.Valid)
		wg.Wait()

		lb, err := c.hub.Get(ctx, code)
		require.NoError(t, err)
		assert.Nil(t, lb, "round %d: finished room still has a lobby", round)

		_, err = c.Draw(ctx, host, code)
		assert.ErrorIs(t, err, apperr.ErrGameEnded)
		lb, err = c.hub.Get(ctx, code)
		require.NoError(t, err)
		assert.Nil(t, lb)
	}
}
