package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/loto-backend/internal/engine"
	"github.com/DoyleJ11/loto-backend/internal/game"
	"github.com/DoyleJ11/loto-backend/internal/hub"
	"github.com/DoyleJ11/loto-backend/internal/realtime"
	"github.com/DoyleJ11/loto-backend/internal/registry"
	"github.com/DoyleJ11/loto-backend/internal/store/memstore"
	"github.com/DoyleJ11/loto-backend/internal/types"
	pub "github.com/DoyleJ11/loto-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type serverEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newServer(t *testing.T) (*httptest.Server, *game.Coordinator) {
	t.Helper()
	log := zaptest.NewLogger(t)
	h := hub.NewHub(context.Background(), log)
	t.Cleanup(h.Shutdown)
	coord := game.NewCoordinator(memstore.New(), h, engine.NewLockedSource(3), game.Config{MaxPlayers: 5}, log)
	b := realtime.NewBroadcaster(registry.New(), coord, log)
	coord.SetNotifier(b)

	srv := httptest.NewServer(Handler(b, Options{WriteTimeout: time.Second, PingInterval: time.Minute}, log))
	t.Cleanup(srv.Close)
	return srv, coord
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(websocket.StatusNormalClosure, "") })
	return c
}

func read(t *testing.T, c *websocket.Conn) serverEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var ev serverEvent
	require.NoError(t, wsjson.Read(ctx, c, &ev))
	return ev
}

func write(t *testing.T, c *websocket.Conn, msg types.ClientMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, c, msg))
}

func TestRoundTrip_JoinStartDraw(t *testing.T) {
	srv, coord := newServer(t)
	ctx := context.Background()
	hostID := uuid.New()
	room, err := coord.CreateRoom(ctx, hostID)
	require.NoError(t, err)
	joined, err := coord.JoinRoom(ctx, room.Code, "An")
	require.NoError(t, err)

	host := dial(t, srv, "?host_id="+hostID.String())
	write(t, host, types.ClientMessage{Type: pub.OpJoinHost, RoomCode: room.Code})
	assert.Equal(t, pub.EventParticipantJoined, read(t, host).Type)

	player := dial(t, srv, "")
	write(t, player, types.ClientMessage{Type: pub.OpJoinPlayer, RoomCode: room.Code, PlayerID: joined.PlayerID.String()})
	assert.Equal(t, pub.EventParticipantJoined, read(t, player).Type)
	assert.Equal(t, pub.EventParticipantJoined, read(t, host).Type)

	started, err := coord.Start(ctx, hostID, room.Code)
	require.NoError(t, err)

	ev := read(t, player)
	require.Equal(t, pub.EventGameStarted, ev.Type)
	var gs pub.GameStarted
	require.NoError(t, json.Unmarshal(ev.Data, &gs))
	assert.Equal(t, started.Tickets[0].TicketID.String(), gs.TicketID)
	var grid engine.Grid
	require.NoError(t, json.Unmarshal(gs.Ticket, &grid))
	assert.Equal(t, started.Tickets[0].Grid, grid)

	assert.Equal(t, pub.EventRoomStatusChanged, read(t, player).Type)
	assert.Equal(t, pub.EventRoomStatusChanged, read(t, host).Type)

	d, err := coord.Draw(ctx, hostID, room.Code)
	require.NoError(t, err)
	for _, c := range []*websocket.Conn{host, player} {
		ev := read(t, c)
		require.Equal(t, pub.EventNumberDrawn, ev.Type)
		var nd pub.NumberDrawn
		require.NoError(t, json.Unmarshal(ev.Data, &nd))
		assert.Equal(t, pub.NumberDrawn{Number: d.Number, Order: 1}, nd)
	}
}

func TestRejectedMessages(t *testing.T) {
	srv, coord := newServer(t)
	room, err := coord.CreateRoom(context.Background(), uuid.New())
	require.NoError(t, err)

	c := dial(t, srv, "")

	tests := []struct {
		name string
		send func()
		code string
	}{
		{"malformed json", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			require.NoError(t, c.Write(ctx, websocket.MessageText, []byte("{not json")))
		}, "INVALID_INPUT"},
		{"unknown type", func() { write(t, c, types.ClientMessage{Type: "shout"}) }, "INVALID_INPUT"},
		{"host join without identity", func() {
			write(t, c, types.ClientMessage{Type: pub.OpJoinHost, RoomCode: room.Code})
		}, "UNAUTHORIZED"},
		{"bad player id", func() {
			write(t, c, types.ClientMessage{Type: pub.OpJoinPlayer, RoomCode: room.Code, PlayerID: "nope"})
		}, "INVALID_INPUT"},
		{"unknown room", func() {
			write(t, c, types.ClientMessage{Type: pub.OpJoinPlayer, RoomCode: "000000", PlayerID: uuid.NewString()})
		}, "ROOM_NOT_FOUND"},
		{"leave before join", func() { write(t, c, types.ClientMessage{Type: pub.OpLeave}) }, "INVALID_INPUT"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.send()
			ev := read(t, c)
			require.Equal(t, pub.EventError, ev.Type)
			var e pub.Error
			require.NoError(t, json.Unmarshal(ev.Data, &e))
			assert.Equal(t, tc.code, e.Error)
		})
	}
}

func TestConn_SendNeverBlocks(t *testing.T) {
	c := newConn("x", 2)
	assert.True(t, c.Send([]byte("1")))
	assert.True(t, c.Send([]byte("2")))
	assert.False(t, c.Send([]byte("3")), "full buffer drops")

	c.Close()
	c.Close()
	<-c.out
	assert.False(t, c.Send([]byte("4")), "closed connection drops")
}

func TestRejoinMidGame_ReceivesEveryDrawnNumber(t *testing.T) {
	srv, coord := newServer(t)
	ctx := context.Background()
	hostID := uuid.New()
	room, err := coord.CreateRoom(ctx, hostID)
	require.NoError(t, err)
	joined, err := coord.JoinRoom(ctx, room.Code, "An")
	require.NoError(t, err)
	started, err := coord.Start(ctx, hostID, room.Code)
	require.NoError(t, err)

	// Well past the default send buffer of 32.
	const draws = 80
	var want []pub.NumberDrawn
	for i := 0; i < draws; i++ {
		d, err := coord.Draw(ctx, hostID, room.Code)
		require.NoError(t, err)
		want = append(want, pub.NumberDrawn{Number: d.Number, Order: d.Order})
	}

	player := dial(t, srv, "")
	write(t, player, types.ClientMessage{Type: pub.OpJoinPlayer, RoomCode: room.Code, PlayerID: joined.PlayerID.String()})

	assert.Equal(t, pub.EventParticipantJoined, read(t, player).Type)

	ev := read(t, player)
	require.Equal(t, pub.EventGameStarted, ev.Type)
	var gs pub.GameStarted
	require.NoError(t, json.Unmarshal(ev.Data, &gs))
	assert.Equal(t, started.Tickets[0].TicketID.String(), gs.TicketID)

	ev = read(t, player)
	require.Equal(t, pub.EventNumberDrawnHistory, ev.Type)
	var h pub.NumberDrawnHistory
	require.NoError(t, json.Unmarshal(ev.Data, &h))
	require.Len(t, h.Drawn, draws)
	assert.Equal(t, want, h.Drawn)

	// Live draws keep flowing after the replay.
	d, err := coord.Draw(ctx, hostID, room.Code)
	require.NoError(t, err)
	ev = read(t, player)
	require.Equal(t, pub.EventNumberDrawn, ev.Type)
	var nd pub.NumberDrawn
	require.NoError(t, json.Unmarshal(ev.Data, &nd))
	assert.Equal(t, pub.NumberDrawn{Number: d.Number, Order: draws + 1}, nd)
}
