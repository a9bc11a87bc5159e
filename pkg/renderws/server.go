package renderws

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/store"
	"github.com/matzehuels/tilewarp/pkg/tilespec"
	"github.com/matzehuels/tilewarp/pkg/transform"
)

// Specs are small; anything beyond this is a malformed upload.
const maxBodyBytes = 16 << 20

// Server exposes a [store.Store] under the render web service routes that
// [Client] expects, rooted at /render-ws/v1. Responses are the specs'
// interchange JSON, so a Client pointed at a Server round-trips specs
// unchanged.
type Server struct {
	store  store.Store
	logger *log.Logger
	router chi.Router
}

// NewServer builds a server over the given store. A nil logger discards
// request logs.
func NewServer(st store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{store: st, logger: logger}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/render-ws/v1", func(r chi.Router) {
		r.Get("/stacks", s.handleStacks)
		r.Route("/stack/{stack}", func(r chi.Router) {
			r.Get("/transforms", s.handleListTransforms)
			r.Get("/transform/{id}", s.handleGetTransform)
			r.Put("/transform", s.handlePutTransform)
			r.Get("/tile/{tileId}", s.handleGetTileSpec)
			r.Put("/tile", s.handlePutTileSpec)
		})
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}

func (s *Server) handleStacks(w http.ResponseWriter, r *http.Request) {
	stacks, err := s.store.Stacks(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stacks)
}

func (s *Server) handleListTransforms(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.ListTransforms(r.Context(), chi.URLParam(r, "stack"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ids)
}

func (s *Server) handleGetTransform(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTransform(r.Context(), chi.URLParam(r, "stack"), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := transform.Encode(t)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handlePutTransform(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "reading spec body"))
		return
	}
	t, err := transform.Decode(data)
	if err != nil {
		s.writeError(w, err)
		return
	}

	id, err := s.store.PutTransform(r.Context(), chi.URLParam(r, "stack"), t)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, putTransformResponse{TransformID: id})
}

func (s *Server) handleGetTileSpec(w http.ResponseWriter, r *http.Request) {
	ts, err := s.store.GetTileSpec(r.Context(), chi.URLParam(r, "stack"), chi.URLParam(r, "tileId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ts)
}

type putTileSpecResponse struct {
	TileID string `json:"tileId"`
}

func (s *Server) handlePutTileSpec(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "reading tile body"))
		return
	}
	var ts tilespec.TileSpec
	if err := json.Unmarshal(data, &ts); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeFormat, err, "decoding tile spec"))
		return
	}

	if err := s.store.PutTileSpec(r.Context(), chi.URLParam(r, "stack"), &ts); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, putTileSpecResponse{TileID: ts.TileID})
}

type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	s.writeJSON(w, statusForCode(code), errorResponse{Error: errors.UserMessage(err), Code: code})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encoding response", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func statusForCode(code errors.Code) int {
	switch code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeFormat, errors.ErrCodeInvalidInput, errors.ErrCodeInvalidID,
		errors.ErrCodeInvalidStack, errors.ErrCodeConversion:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
