// Package mockserver is an in-process stand-in for an annotation inference
// server. It speaks the same HTTP protocol as the real server so the CLI can
// be developed and tested without GPUs or models.
package mockserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aiaa/pkg/types"
)

// ModelFilter narrows ListModels. Empty fields match everything.
type ModelFilter struct {
	Name  string
	Label string
	Type  types.ModelType
}

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ListModels(f ModelFilter) []types.Model
	Dextr3D(ctx context.Context, model string, params types.Dextr3DParams, image []byte) ([]byte, error)
	CreateSession(image []byte, name string, expirySeconds int) (types.Session, error)
	GetSession(id string) (types.Session, error)
	CloseSession(id string) error
}

// NewMux builds the router for svc.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mt, err := types.ParseModelType(q.Get("type"))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		f := ModelFilter{Name: q.Get("model"), Label: q.Get("label"), Type: mt}
		models := svc.ListModels(f)
		if f.Name != "" && len(models) == 0 {
			writeServiceError(w, ErrModelNotFound(f.Name))
			return
		}
		if models == nil {
			models = []types.Model{}
		}
		writeJSON(w, http.StatusOK, models)
	})

	r.Post("/v1/dextr3d", func(w http.ResponseWriter, r *http.Request) {
		model := r.URL.Query().Get("model")
		if model == "" {
			writeJSONError(w, http.StatusBadRequest, "model is required")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		var params types.Dextr3DParams
		if err := json.Unmarshal([]byte(r.FormValue("params")), &params); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid params JSON")
			return
		}
		if sid := r.URL.Query().Get("session_id"); sid != "" {
			params.SessionID = sid
		}
		image, err := formFile(r, "image")
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		out, err := svc.Dextr3D(r.Context(), model, params, image)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
	})

	r.Put("/session/", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		f, hdr, err := r.FormFile("image")
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "image is required")
			return
		}
		defer f.Close()
		image, err := io.ReadAll(f)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "failed to read image")
			return
		}
		expiry := 0
		if v := r.URL.Query().Get("expiry"); v != "" {
			if expiry, err = strconv.Atoi(v); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid expiry")
				return
			}
		}
		s, err := svc.CreateSession(image, hdr.Filename, expiry)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	})

	r.Get("/session/{id}", func(w http.ResponseWriter, r *http.Request) {
		s, err := svc.GetSession(chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	})

	r.Delete("/session/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CloseSession(chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// formFile returns the named upload, or nil when the field is absent.
func formFile(r *http.Request, field string) ([]byte, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, nil
	}
	f, err := r.MultipartForm.File[field][0].Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}

// splitCSV parses a comma-separated flag value, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ConfigureCORS enables CORS from comma-separated lists; empty origins disable it.
func ConfigureCORS(origins, methods, headers string) {
	o := splitCSV(origins)
	if len(o) == 0 {
		SetCORSOptions(false, nil, nil, nil)
		return
	}
	m := splitCSV(methods)
	if len(m) == 0 {
		m = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}
	}
	h := splitCSV(headers)
	if len(h) == 0 {
		h = []string{"Content-Type", "Authorization", "X-Request-Id"}
	}
	SetCORSOptions(true, o, m, h)
}
