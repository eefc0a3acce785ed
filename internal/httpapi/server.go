package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"inferd/internal/manager"
	"inferd/internal/selection"
	"inferd/pkg/types"
)

// maxBodyBytes limits JSON request bodies.
const maxBodyBytes = 1 << 20

// CORSOptions configures the optional CORS middleware.
type CORSOptions struct {
	Enabled        bool
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Server exposes the model management subsystem over HTTP.
type Server struct {
	mgr    *manager.Manager
	policy *selection.Policy
	log    zerolog.Logger
	ready  atomic.Bool
}

// NewServer wires the HTTP layer to its collaborators.
func NewServer(mgr *manager.Manager, policy *selection.Policy, log zerolog.Logger) *Server {
	return &Server{mgr: mgr, policy: policy, log: log}
}

// SetReady flips the /readyz signal once startup discovery finished.
func (s *Server) SetReady(v bool) { s.ready.Store(v) }

// Mux builds the chi router.
func (s *Server) Mux(opts CORSOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	if opts.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: opts.AllowedMethods,
			AllowedHeaders: opts.AllowedHeaders,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/models", s.handleListModels)
	r.Post("/models", s.handleRegister)
	r.Get("/models/{id}", s.handleGetModel)
	r.Post("/models/{id}/load", s.handleLoad)
	r.Post("/models/{id}/unload", s.handleUnload)
	r.Post("/models/{id}/warmup", s.handleWarmup)
	r.Post("/run", s.handleRun)
	r.Post("/select", s.handleSelect)
	r.Post("/assign", s.handleAssign)
	r.Get("/reports/{id}", s.handleReport)
	r.Get("/system", s.handleSystem)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.ready.Load() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("starting"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	statuses := s.mgr.Status()
	if kind := r.URL.Query().Get("kind"); kind != "" {
		k := types.ModelKind(kind)
		if !types.ValidKind(k) {
			writeJSONError(w, http.StatusBadRequest, "unknown kind: "+kind)
			return
		}
		filtered := statuses[:0:0]
		for _, st := range statuses {
			if st.Descriptor.Kind == k {
				filtered = append(filtered, st)
			}
		}
		statuses = filtered
	}
	writeJSON(w, types.ModelsResponse{Models: statuses})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	var err error
	if req.Replace {
		err = s.mgr.Replace(req.Descriptor)
	} else {
		err = s.mgr.Register(req.Descriptor)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(req.Descriptor)
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	desc, ok := s.mgr.Get(id)
	if !ok {
		s.writeError(w, r, manager.ErrUnknownModel(id))
		return
	}
	writeJSON(w, types.ModelStatus{
		Descriptor: desc,
		State:      s.mgr.State(id),
		RefCount:   s.mgr.RefCount(id),
	})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.mgr.Load(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, types.LoadResponse{ModelID: id, State: s.mgr.State(id), RefCount: s.mgr.RefCount(id)})
}

func (s *Server) handleWarmup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	op, err := s.mgr.LoadAsync(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(types.OpResponse{OpID: op})
}

func (s *Server) handleUnload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.mgr.Unload(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, types.LoadResponse{ModelID: id, State: s.mgr.State(id), RefCount: s.mgr.RefCount(id)})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req types.RunRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		writeJSONError(w, http.StatusBadRequest, "model is required")
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		writeJSONError(w, http.StatusBadRequest, "input is required")
		return
	}
	res, err := s.mgr.RunOrCached(r.Context(), req.Model, req.Input, req.Params)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req types.SelectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := s.policy.SelectFor(req.Role, req.Task)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, types.SelectResponse{ModelID: id})
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	var req types.AssignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.policy.Assign(req.Role, req.Task, req.ModelID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := s.mgr.Get(id); !ok {
		s.writeError(w, r, manager.ErrUnknownModel(id))
		return
	}
	writeJSON(w, s.mgr.Monitor().Report(id))
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.mgr.Monitor().SystemSnapshot())
}

// writeError maps a taxonomy error to its status code and logs it with
// request context.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	ev := s.log.Warn().Int("status", status).Str("path", r.URL.Path).Err(err)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		ev = ev.Str("request_id", rid)
	}
	ev.Msg("request failed")
	writeJSONError(w, status, publicMessage(err, status))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// decodeJSON enforces content type and body limits; it writes the error
// response itself and reports success.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
