package admin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// HealthFunc reports whether a dependency is reachable.
type HealthFunc func(ctx context.Context) error

// HTTPOption configures the HTTP router.
type HTTPOption func(*httpHandler)

// WithHealthCheck adds a named dependency to /healthz.
func WithHealthCheck(name string, fn HealthFunc) HTTPOption {
	return func(h *httpHandler) {
		h.checks = append(h.checks, namedCheck{name: name, fn: fn})
	}
}

type namedCheck struct {
	name string
	fn   HealthFunc
}

type httpHandler struct {
	svc    *Service
	checks []namedCheck
	logger *zap.Logger
}

// NewRouter builds the admin HTTP API:
//
//	GET    /healthz         liveness plus configured dependency checks
//	GET    /rooms           every live room
//	GET    /rooms/{name}    one room
//	DELETE /rooms/{name}    close a room
//	GET    /matches         stored match results (?room=&limit=)
func NewRouter(svc *Service, logger *zap.Logger, opts ...HTTPOption) http.Handler {
	h := &httpHandler{svc: svc, logger: logger}
	for _, opt := range opts {
		opt(h)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.healthz)
	r.Route("/rooms", func(r chi.Router) {
		r.Get("/", h.listRooms)
		r.Get("/{name}", h.getRoom)
		r.Delete("/{name}", h.closeRoom)
	})
	r.Get("/matches", h.listMatches)
	return r
}

func (h *httpHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Debug("admin http",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func (h *httpHandler) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]any{}
	code := http.StatusOK
	for _, c := range h.checks {
		if err := c.fn(ctx); err != nil {
			checks[c.name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		checks[c.name] = "ok"
	}
	state := "ok"
	if code != http.StatusOK {
		state = "degraded"
	}
	body, err := structpb.NewStruct(map[string]any{"status": state, "checks": checks})
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.write(w, code, body)
}

func (h *httpHandler) listRooms(w http.ResponseWriter, r *http.Request) {
	body, err := h.svc.ListRooms(r.Context(), nil)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.write(w, http.StatusOK, body)
}

func (h *httpHandler) getRoom(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	snap, ok := h.svc.rooms.Snapshot(name)
	if !ok {
		h.fail(w, http.StatusNotFound, "room not found: "+name)
		return
	}
	body, err := structpb.NewStruct(RoomStruct(snap))
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.write(w, http.StatusOK, body)
}

func (h *httpHandler) closeRoom(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !h.svc.rooms.CloseRoom(name) {
		h.fail(w, http.StatusNotFound, "room not found: "+name)
		return
	}
	h.logger.Info("room closed by operator", zap.String("room", name))
	w.WriteHeader(http.StatusNoContent)
}

func (h *httpHandler) listMatches(w http.ResponseWriter, r *http.Request) {
	if h.svc.matches == nil {
		h.fail(w, http.StatusNotFound, "match history is disabled")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.fail(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := h.svc.matches.ListByRoom(r.Context(), r.URL.Query().Get("room"), limit)
	if err != nil {
		h.logger.Error("listing matches", zap.Error(err))
		h.fail(w, http.StatusInternalServerError, "listing matches failed")
		return
	}
	body, err := MatchesStruct(records)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.write(w, http.StatusOK, body)
}

func (h *httpHandler) fail(w http.ResponseWriter, code int, msg string) {
	h.write(w, code, &structpb.Struct{Fields: map[string]*structpb.Value{
		"error": structpb.NewStringValue(msg),
	}})
}

func (h *httpHandler) write(w http.ResponseWriter, code int, msg proto.Message) {
	data, err := protojson.Marshal(msg)
	if err != nil {
		h.logger.Error("encoding admin response", zap.Error(err))
		http.Error(w, "encoding response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}
