package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

func SetupRoutes(svc Coordinator, wsHandler http.Handler, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	h := handlers{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	if wsHandler != nil {
		r.Method(http.MethodGet, "/ws", wsHandler)
	}

	r.Route("/rooms", func(r chi.Router) {
		r.Post("/", h.createRoom)
		r.Get("/my-active", h.activeRoom)

		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", h.roomInfo)
			r.Post("/join", h.joinRoom)
			r.Get("/players", h.listPlayers)
			r.Post("/kinh", h.claim)
			r.Post("/tickets/{ticketId}/marks", h.mark)

			// Host only
			r.Post("/close", hostAction(h, http.StatusOK, svc.Close))
			r.Post("/start", hostAction(h, http.StatusOK, svc.Start))
			r.Post("/draw", hostAction(h, http.StatusOK, svc.Draw))
			r.Post("/end", hostAction(h, http.StatusOK, svc.End))
			r.Get("/state", hostAction(h, http.StatusOK, svc.State))
		})
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
