// Package inspector serves a read-mostly debug API over the service
// container and the reactive store, plus the Prometheus metrics endpoint.
//
//	GET  /debug/container           container.Status
//	GET  /debug/store               store.DebugInfo
//	GET  /debug/store/history       snapshots, oldest first (?limit=N keeps the newest N)
//	GET  /debug/store/state/{key}   one field
//	POST /debug/store/actions       dispatch {"type": ..., "payload": ...}
//	POST /debug/store/undo          undo the latest change
//	GET  /metrics                   Prometheus exposition
package inspector

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/km-arc/portal-runtime/framework/container"
	gohttp "github.com/km-arc/portal-runtime/framework/http"
	"github.com/km-arc/portal-runtime/framework/routing"
	"github.com/km-arc/portal-runtime/framework/store"
)

// DefaultSource is stamped on actions posted without a source.
const DefaultSource = "inspector"

// ContainerView is the part of the container the inspector reads.
type ContainerView interface {
	Status() container.Status
}

// StoreView is the part of the store the inspector reads and drives.
type StoreView interface {
	GetState() store.State
	DebugInfo() store.DebugInfo
	History() []store.HistoryEntry
	Dispatch(action store.Action) error
	Undo() bool
}

// Server is the debug HTTP server.
type Server struct {
	addr   string
	router *routing.Router
	log    logrus.FieldLogger

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
}

// New builds the server and its routes. metrics may be nil.
func New(addr string, c ContainerView, st StoreView, metrics http.Handler, log logrus.FieldLogger) *Server {
	h := &handlers{container: c, store: st}

	r := routing.New(log)
	r.Prefix("/debug", func(d *routing.Router) {
		d.Get("/container", h.containerStatus)
		d.Get("/store", h.storeInfo)
		d.Get("/store/history", h.history)
		d.Get("/store/state/{key}", h.field)
		d.Post("/store/actions", h.dispatch)
		d.Post("/store/undo", h.undo)
	})
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}

	return &Server{addr: addr, router: r, log: log}
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured address and serves in the background.
// Listen errors are returned; serve errors are logged.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return errors.New("inspector: already started")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.srv = &http.Server{Handler: s.router, ReadHeaderTimeout: 5 * time.Second}
	srv := s.srv

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("inspector: serve failed")
		}
	}()
	s.log.WithField("addr", ln.Addr().String()).Info("inspector: listening")
	return nil
}

// Addr is the bound address once started, the configured one before.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown stops the server gracefully. It is a no-op if not started.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv, s.listener = nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// ── Handlers ─────────────────────────────────────────────────────────────────

type handlers struct {
	container ContainerView
	store     StoreView
}

func (h *handlers) containerStatus(w http.ResponseWriter, _ *http.Request) {
	gohttp.NewResponse(w).Success(h.container.Status())
}

func (h *handlers) storeInfo(w http.ResponseWriter, _ *http.Request) {
	gohttp.NewResponse(w).Success(h.store.DebugInfo())
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)

	entries := h.store.History()
	if raw := req.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			res.BadRequest("limit must be a non-negative integer")
			return
		}
		if limit < len(entries) {
			entries = entries[len(entries)-limit:]
		}
	}
	res.Success(entries)
}

func (h *handlers) field(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)

	key := req.RouteParam("key")
	value, ok := h.store.GetState()[key]
	if !ok {
		res.NotFound("no state field " + strconv.Quote(key))
		return
	}
	res.Success(map[string]any{"key": key, "value": value})
}

type actionRequest struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	Source  string `json:"source,omitempty"`
}

func (h *handlers) dispatch(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)

	var body actionRequest
	if err := req.Bind(&body); err != nil {
		res.BadRequest(err.Error())
		return
	}
	if body.Type == "" {
		res.BadRequest("type is required")
		return
	}
	if body.Source == "" {
		body.Source = DefaultSource
	}

	err := h.store.Dispatch(store.Action{
		Type:    body.Type,
		Payload: body.Payload,
		Meta:    store.Meta{Source: body.Source},
	})
	switch {
	case errors.Is(err, store.ErrDestroyed):
		res.Error(http.StatusServiceUnavailable, err.Error())
	case err != nil:
		res.Error(http.StatusUnprocessableEntity, err.Error())
	default:
		res.Accepted(map[string]any{"type": body.Type, "source": body.Source})
	}
}

func (h *handlers) undo(w http.ResponseWriter, _ *http.Request) {
	res := gohttp.NewResponse(w)
	if !h.store.Undo() {
		res.Error(http.StatusConflict, "nothing to undo")
		return
	}
	res.Success(h.store.GetState())
}
