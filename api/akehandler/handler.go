// Package akehandler implements the orchestrator's inbound HTTP surface:
// the standalone health read path and the AKE round-trip endpoint. It also
// provides a Go client for the same surface.
package akehandler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pqops/ake-orchestrator/interfaces"
	"github.com/pqops/ake-orchestrator/metrics"
)

// Runner is the orchestration core as seen by the HTTP layer.
type Runner interface {
	RunAKE(ctx context.Context, input interfaces.SelectionInput) (*interfaces.AkeResult, error)
	Health(ctx context.Context) interfaces.HealthReport
}

// ErrorResponse is the single externally visible error shape. Callers are
// expected to treat the endpoint as success/failure; the Detail string is
// for humans, not for branching.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// errSelectAkeFailed is the fixed error code for every fatal orchestration
// failure.
const errSelectAkeFailed = "select_ake_failed"

// Handler processes HTTP requests for the AKE orchestrator.
type Handler struct {
	runner Runner
	log    *slog.Logger
}

// NewHandler creates an HTTP handler over the orchestration core.
func NewHandler(runner Runner, log *slog.Logger) *Handler {
	return &Handler{runner: runner, log: log}
}

// RegisterRoutes mounts the handler's routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Post("/select/ake", h.HandleSelectAke)
}

// HandleHealth probes all backends and reports the composed status. The
// response is always 200; degradation is carried in the body.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	metrics.RecordHealthRequest()
	writeJSON(w, http.StatusOK, h.runner.Health(r.Context()))
}

// HandleSelectAke runs one full AKE round trip. A shared-secret mismatch is
// reported as a 200 with status "mismatch"; only orchestration-level
// failures produce the 502 error shape.
func (h *Handler) HandleSelectAke(w http.ResponseWriter, r *http.Request) {
	metrics.RecordAkeRequest()

	input := parseSelectionInput(r)

	result, err := h.runner.RunAKE(r.Context(), input)
	if err != nil {
		metrics.RecordAkeFailure()
		h.log.Error("AKE orchestration failed", "err", err)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: errSelectAkeFailed, Detail: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// selectAkeRequest mirrors the loosely-typed request body: the payload hint
// and level arrive as numbers or strings depending on the caller.
type selectAkeRequest struct {
	PayloadHintBytes   any    `json:"payloadHintBytes"`
	PolicyPreferredSig string `json:"policyPreferredSig"`
	Level              any    `json:"level"`
}

// parseSelectionInput validates the request body loosely: malformed or
// non-positive hints are ignored, never rejected.
func parseSelectionInput(r *http.Request) interfaces.SelectionInput {
	var req selectAkeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return interfaces.SelectionInput{}
	}

	input := interfaces.SelectionInput{
		PayloadHintBytes: parsePayloadHint(req.PayloadHintBytes),
		Level:            stringify(req.Level),
	}
	if scheme, err := interfaces.NewScheme(req.PolicyPreferredSig); err == nil {
		input.PolicyPreferredSig = scheme
	}
	return input
}

func parsePayloadHint(v any) int64 {
	switch hint := v.(type) {
	case float64:
		if hint > 0 {
			return int64(hint)
		}
	case string:
		if parsed, err := strconv.ParseFloat(hint, 64); err == nil && parsed > 0 {
			return int64(parsed)
		}
	}
	return 0
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
