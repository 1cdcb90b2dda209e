package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DoyleJ11/loto-backend/internal/apperr"
	"github.com/DoyleJ11/loto-backend/internal/realtime"
	"github.com/DoyleJ11/loto-backend/internal/types"
	pub "github.com/DoyleJ11/loto-backend/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Broadcaster is what a live connection dispatches to.
type Broadcaster interface {
	Attach(c realtime.Conn)
	JoinHost(ctx context.Context, c realtime.Conn, code string, hostID uuid.UUID) error
	JoinPlayer(ctx context.Context, c realtime.Conn, code string, playerID uuid.UUID) error
	Leave(ctx context.Context, connID string) error
	Kick(ctx context.Context, connID, code string, playerID uuid.UUID) error
	Mark(ctx context.Context, connID string, ticketID uuid.UUID, number int, marked bool) error
	Disconnect(ctx context.Context, connID string)
	SendError(connID string, err error)
}

type Options struct {
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	SendBuffer     int
	OriginPatterns []string
}

func (o Options) withDefaults() Options {
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 32
	}
	return o
}

// HostHeader carries the caller identity established by the identity layer in front of us.
const HostHeader = "X-Host-ID"

var errMissingHost = apperr.ErrNotHost.WithMessage("host identity is required to join as host")

func Handler(b Broadcaster, opts Options, log *zap.Logger) http.HandlerFunc {
	opts = opts.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		hostID, hasHost := hostIdentity(r)

		sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer sock.Close(websocket.StatusNormalClosure, "bye")

		c := newConn(uuid.NewString(), opts.SendBuffer)
		clog := log.With(zap.String("conn_id", c.id))
		b.Attach(c)

		ctx, cancel := context.WithCancel(r.Context())
		defer func() {
			cancel()
			dctx, dcancel := context.WithTimeout(context.Background(), opts.WriteTimeout)
			b.Disconnect(dctx, c.id)
			dcancel()
		}()

		go c.writeLoop(ctx, sock, opts, clog)

		// Reader loop
		for {
			_, data, err := sock.Read(ctx)
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("websocket read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				b.SendError(c.id, apperr.ErrInvalidInput.WithMessage("malformed message"))
				continue
			}
			if err := dispatch(ctx, b, c, cm, hostID, hasHost); err != nil {
				clog.Debug("client message rejected", zap.String("type", cm.Type), zap.Error(err))
				b.SendError(c.id, err)
			}
		}
	}
}

func dispatch(ctx context.Context, b Broadcaster, c *conn, cm types.ClientMessage, hostID uuid.UUID, hasHost bool) error {
	switch cm.Type {
	case pub.OpJoinHost:
		if !hasHost {
			return errMissingHost
		}
		return b.JoinHost(ctx, c, cm.RoomCode, hostID)
	case pub.OpJoinPlayer:
		id, err := parseID(cm.PlayerID, "player_id")
		if err != nil {
			return err
		}
		return b.JoinPlayer(ctx, c, cm.RoomCode, id)
	case pub.OpLeave:
		return b.Leave(ctx, c.id)
	case pub.OpKick:
		id, err := parseID(cm.PlayerID, "player_id")
		if err != nil {
			return err
		}
		return b.Kick(ctx, c.id, cm.RoomCode, id)
	case pub.OpMark:
		id, err := parseID(cm.TicketID, "ticket_id")
		if err != nil {
			return err
		}
		return b.Mark(ctx, c.id, id, cm.Number, cm.Marked)
	default:
		return apperr.ErrInvalidInput.WithMessage("unknown message type")
	}
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.ErrInvalidInput.WithMessage(field + " must be a uuid")
	}
	return id, nil
}

func hostIdentity(r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get("host_id")
	if raw == "" {
		raw = r.Header.Get(HostHeader)
	}
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
