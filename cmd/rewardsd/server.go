package main

import (
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/storyatlas/disburse"
	"github.com/storyatlas/disburse/logger"
	"github.com/storyatlas/disburse/types"
)

// maxBlobBytes bounds uploads to the content store.
const maxBlobBytes = 10 << 20

// Server exposes the claim and pointer operations over HTTP.
type Server struct {
	svc *disburse.Service
	log logger.Logger

	router http.Handler
}

// NewServer constructs the configured HTTP router.
func NewServer(svc *disburse.Service, log logger.Logger) *Server {
	s := &Server{svc: svc, log: log}
	s.router = s.buildRouter()
	return s
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/claims", s.SubmitClaim)
		api.Get("/chains", s.ListChains)
		api.Post("/state/blobs", s.PublishBlob)
		api.Post("/state/pointers/{name}", s.SetPointer)
		api.Get("/state/pointers/{name}", s.GetPointer)
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

type claimPayload struct {
	Chain            string          `json:"chain"`
	RecipientAddress string          `json:"recipientAddress"`
	Points           *int64          `json:"points,omitempty"`
	ExplicitAmount   json.RawMessage `json:"explicitAmount,omitempty"`
	Memo             string          `json:"memo,omitempty"`
}

// SubmitClaim runs one payout attempt. The settlement result is returned as
// the body either way; the status code mirrors its Ok flag so callers can
// branch without parsing.
func (s *Server) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	var payload claimPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	req := &types.ClaimRequest{
		Chain:            types.Chain(payload.Chain),
		RecipientAddress: payload.RecipientAddress,
		Points:           payload.Points,
		Memo:             payload.Memo,
	}
	if len(payload.ExplicitAmount) > 0 {
		// Accepted as either a JSON string or a bare integer.
		raw := strings.Trim(string(payload.ExplicitAmount), `"`)
		amount, ok := new(big.Int).SetString(raw, 10)
		if !ok {
			http.Error(w, "invalid explicitAmount", http.StatusBadRequest)
			return
		}
		req.ExplicitAmount = amount
	}

	result, err := s.svc.Claim(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	status := http.StatusOK
	if !result.Ok {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, result)
}

func (s *Server) ListChains(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"chains": s.svc.SupportedChains()})
}

// PublishBlob stores the raw request body and returns its content id. The
// name query tags the blob for later listing.
func (s *Server) PublishBlob(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "name query parameter is required", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBlobBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		http.Error(w, "empty body", http.StatusBadRequest)
		return
	}

	cid, err := s.svc.PublishBlob(r.Context(), data, name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"cid": cid})
}

func (s *Server) SetPointer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var payload struct {
		Latest string `json:"latest"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	pointerBlobID, err := s.svc.SetPointer(r.Context(), name, payload.Latest)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"pointerBlobId": pointerBlobID})
}

// GetPointer resolves a pointer. A pointer that was never set resolves to
// empty values with status 200; only backend failures are errors.
func (s *Server) GetPointer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	cid, pointerBlobID, err := s.svc.GetPointer(r.Context(), name)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// An unset pointer reads as a null cid, not an empty string.
	resp := map[string]any{"cid": nil}
	if cid != "" {
		resp["cid"] = cid
	}
	if pointerBlobID != "" {
		resp["pointerBlobId"] = pointerBlobID
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var typed *types.Error
	if errors.As(err, &typed) {
		switch typed.Code {
		case types.ErrValidation:
			status = http.StatusBadRequest
		case types.ErrConfiguration:
			status = http.StatusServiceUnavailable
		}
		s.writeJSON(w, status, typed)
		return
	}
	s.writeJSON(w, status, map[string]string{"message": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("write response", map[string]any{"error": err.Error()})
	}
}
