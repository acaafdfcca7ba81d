package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Harshitk-cp/factlearn/internal/domain"
	"github.com/Harshitk-cp/factlearn/internal/service"
	"github.com/Harshitk-cp/factlearn/internal/store"
)

type FactHandler struct {
	learner  *service.LearnerService
	verifier *service.VerifierService
	pending  domain.PendingFactStore
}

func NewFactHandler(learner *service.LearnerService, verifier *service.VerifierService, pending domain.PendingFactStore) *FactHandler {
	return &FactHandler{learner: learner, verifier: verifier, pending: pending}
}

type processMessageRequest struct {
	UserRef string   `json:"user_ref"`
	Message string   `json:"message"`
	Context []string `json:"context,omitempty"`
	Async   bool     `json:"async,omitempty"`
}

type processMessageResponse struct {
	domain.DetectionOutcome
	Error string `json:"error,omitempty"`
}

// ProcessMessage runs correction detection on one user message.
func (h *FactHandler) ProcessMessage(w http.ResponseWriter, r *http.Request) {
	var req processMessageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	if req.Async {
		h.learner.ProcessAsync(req.UserRef, req.Message, req.Context)
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		return
	}

	out := h.learner.Process(r.Context(), req.UserRef, req.Message, req.Context)
	resp := processMessageResponse{DetectionOutcome: out}
	if out.Err != nil {
		resp.Error = "detection failed"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *FactHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	var filter domain.PendingFilter

	if c := r.URL.Query().Get("category"); c != "" {
		if !domain.ValidCategory(c) {
			writeError(w, http.StatusBadRequest, "invalid category")
			return
		}
		cat := domain.Category(c)
		filter.Category = &cat
	}
	if mc := r.URL.Query().Get("min_confidence"); mc != "" {
		v, err := strconv.ParseFloat(mc, 64)
		if err != nil || v < 0 || v > 1 {
			writeError(w, http.StatusBadRequest, "min_confidence must be between 0 and 1")
			return
		}
		filter.MinConfidence = v
	}

	facts, err := h.pending.ListPending(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err, "failed to list pending facts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"facts": facts, "count": len(facts)})
}

func (h *FactHandler) PendingStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.pending.Stats(r.Context())
	if err != nil {
		writeStoreError(w, err, "failed to read pending stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type verifyRequest struct {
	Fact string `json:"fact"`
}

// Verify verifies one fact by text. A provider failure is reported as 502
// with the result body; the fact stays pending.
func (h *FactHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.verifier.VerifyText(r.Context(), req.Fact)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFactTextEmpty):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrBatchInProgress):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeStoreError(w, err, "failed to verify fact")
		}
		return
	}

	status := http.StatusOK
	if res.Status == domain.VerificationFailed {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

// VerifyPending runs a batch over all pending facts.
func (h *FactHandler) VerifyPending(w http.ResponseWriter, r *http.Request) {
	report, err := h.verifier.RunPending(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBatchInProgress):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeStoreError(w, err, "failed to run verification")
		}
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeStoreError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, store.ErrMalformedDocument) {
		writeError(w, http.StatusInternalServerError, "persisted document is malformed; operator intervention required")
		return
	}
	writeError(w, http.StatusInternalServerError, msg)
}
