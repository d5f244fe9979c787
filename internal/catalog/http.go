package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ProductAPI/pkg/kit"
)

const (
	maxBodyBytes = 1 << 20

	welcomeText      = "Welcome to the Product API! Go to /api/products to see all products."
	protectedMessage = "This is a protected route!"
)

type Server struct {
	Store  Store
	Log    *zap.Logger
	APIKey string
}

// handlerFunc is a route body whose failures are rendered by Server.fail.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		kit.WriteText(w, http.StatusOK, welcomeText)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.readyz)

	r.Group(func(pr chi.Router) {
		pr.Use(kit.RequireAPIKey(s.APIKey))

		pr.Get("/protected", func(w http.ResponseWriter, _ *http.Request) {
			kit.WriteJSON(w, http.StatusOK, map[string]string{"message": protectedMessage})
		})

		pr.Route("/api/products", func(rr chi.Router) {
			rr.Get("/", s.handle(s.list))
			rr.Post("/", s.handle(s.create))
			rr.Get("/search", s.handle(s.search))
			rr.Get("/stats", s.handle(s.stats))
			rr.Get("/{id}", s.handle(s.get))
			rr.Delete("/{id}", s.handle(s.delete))
		})
	})

	return r
}

func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.fail(w, r, err)
		}
	}
}

// fail maps an error to its response. Only NotFoundError and
// ValidationError reach the client verbatim.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		nf *NotFoundError
		ve *ValidationError
	)

	switch {
	case errors.As(err, &nf):
		kit.WriteMessage(w, r, http.StatusNotFound, nf.Error(), nil)
	case errors.As(err, &ve):
		details := ve.Details
		if details == nil {
			details = map[string]any{}
		}
		kit.WriteMessage(w, r, http.StatusBadRequest, ve.Message, details)
	default:
		if s.Log != nil {
			s.Log.Error("unhandled request error",
				zap.Error(err),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)
		}
		kit.WriteMessage(w, r, http.StatusInternalServerError, kit.InternalErrorMessage, nil)
	}
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		if s.Log != nil {
			s.Log.Warn("readyz failed", zap.Error(err))
		}
		kit.WriteMessage(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()

	res, err := s.Store.List(r.Context(), ListQuery{
		Category: q.Get("category"),
		Page:     positiveInt(q.Get("page")),
		Limit:    positiveInt(q.Get("limit")),
	})
	if err != nil {
		return err
	}

	kit.WriteJSON(w, http.StatusOK, res)
	return nil
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) error {
	p, err := s.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}

	kit.WriteJSON(w, http.StatusOK, p)
	return nil
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) error {
	raw, err := decodeObject(w, r)
	if err != nil {
		return err
	}

	np, err := Validate(raw)
	if err != nil {
		return err
	}

	p, err := s.Store.Create(r.Context(), np)
	if err != nil {
		return err
	}

	kit.WriteJSON(w, http.StatusCreated, p)
	return nil
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) error {
	if err := s.Store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) error {
	ps, err := s.Store.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		return err
	}

	kit.WriteJSON(w, http.StatusOK, ps)
	return nil
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) error {
	stats, err := s.Store.StatsByCategory(r.Context())
	if err != nil {
		return err
	}

	kit.WriteJSON(w, http.StatusOK, stats)
	return nil
}

// decodeObject reads exactly one JSON object from the request body.
func decodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, invalid("body", msgBody)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, invalid("body", msgBody)
	}

	return raw, nil
}

// positiveInt parses a query value, mapping anything that is not an
// integer >= 1 to 0 so the store applies its default.
func positiveInt(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0
	}
	return n
}
