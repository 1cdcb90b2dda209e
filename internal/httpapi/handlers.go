package httpapi

import (
	"context"
	"net/http"

	"github.com/DoyleJ11/loto-backend/internal/apperr"
	"github.com/DoyleJ11/loto-backend/internal/game"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Coordinator is the game surface exposed over HTTP.
type Coordinator interface {
	CreateRoom(ctx context.Context, hostID uuid.UUID) (game.CreateResult, error)
	ActiveRoom(ctx context.Context, hostID uuid.UUID) (game.RoomSummary, error)
	RoomInfo(ctx context.Context, code string) (game.RoomSummary, error)
	JoinRoom(ctx context.Context, code, nickname string) (game.JoinResult, error)
	ListPlayers(ctx context.Context, code string) (game.PlayerList, error)
	Close(ctx context.Context, hostID uuid.UUID, code string) (game.CloseResult, error)
	Start(ctx context.Context, hostID uuid.UUID, code string) (game.StartResult, error)
	Draw(ctx context.Context, hostID uuid.UUID, code string) (game.DrawResult, error)
	Claim(ctx context.Context, code string, ticketID uuid.UUID, row int) (game.ClaimResult, error)
	End(ctx context.Context, hostID uuid.UUID, code string) (game.EndResult, error)
	State(ctx context.Context, hostID uuid.UUID, code string) (game.State, error)
	MarkNumber(ctx context.Context, code string, ticketID uuid.UUID, number int, marked bool) (game.MarkResult, error)
}

type handlers struct {
	svc Coordinator
	log *zap.Logger
}

// hostAction adapts a host-only coordinator call on the room in the path.
func hostAction[T any](h handlers, status int, fn func(ctx context.Context, hostID uuid.UUID, code string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := hostID(r)
		if err != nil {
			writeError(w, r, h.log, err)
			return
		}
		res, err := fn(r.Context(), id, chi.URLParam(r, "code"))
		if err != nil {
			writeError(w, r, h.log, err)
			return
		}
		writeJSON(w, status, res)
	}
}

func (h handlers) createRoom(w http.ResponseWriter, r *http.Request) {
	id, err := hostID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.svc.CreateRoom(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	status := http.StatusCreated
	if res.Existing {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

func (h handlers) activeRoom(w http.ResponseWriter, r *http.Request) {
	id, err := hostID(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.svc.ActiveRoom(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h handlers) roomInfo(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RoomInfo(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h handlers) joinRoom(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Nickname string `json:"nickname"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.svc.JoinRoom(r.Context(), chi.URLParam(r, "code"), body.Nickname)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h handlers) listPlayers(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListPlayers(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h handlers) claim(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TicketID string `json:"ticket_id"`
		Row      *int   `json:"row"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	ticketID, err := uuid.Parse(body.TicketID)
	if err != nil {
		writeError(w, r, h.log, apperr.ErrInvalidInput.WithMessage("ticket_id must be a uuid"))
		return
	}
	if body.Row == nil {
		writeError(w, r, h.log, apperr.ErrInvalidInput.WithMessage("row is required"))
		return
	}
	res, err := h.svc.Claim(r.Context(), chi.URLParam(r, "code"), ticketID, *body.Row)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h handlers) mark(w http.ResponseWriter, r *http.Request) {
	ticketID, err := uuid.Parse(chi.URLParam(r, "ticketId"))
	if err != nil {
		writeError(w, r, h.log, apperr.ErrInvalidInput.WithMessage("ticket id must be a uuid"))
		return
	}
	var body struct {
		Number int  `json:"number"`
		Marked bool `json:"marked"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.svc.MarkNumber(r.Context(), chi.URLParam(r, "code"), ticketID, body.Number, body.Marked)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
