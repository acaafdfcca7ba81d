package handlers

import (
	"net/http"
	"strings"

	"github.com/Harshitk-cp/factlearn/internal/domain"
	"github.com/Harshitk-cp/factlearn/internal/service"
)

type KnowledgeHandler struct {
	knowledge domain.KnowledgeStore
	augmenter *service.AugmenterService
}

func NewKnowledgeHandler(knowledge domain.KnowledgeStore, augmenter *service.AugmenterService) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledge, augmenter: augmenter}
}

func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	facts, err := h.knowledge.List(r.Context())
	if err != nil {
		writeStoreError(w, err, "failed to list knowledge")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"facts": facts, "count": len(facts)})
}

// Search accepts repeated q parameters; each may also be comma separated.
func (h *KnowledgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	var terms []string
	for _, q := range r.URL.Query()["q"] {
		for _, t := range strings.Split(q, ",") {
			if t = strings.TrimSpace(t); t != "" {
				terms = append(terms, t)
			}
		}
	}
	if len(terms) == 0 {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	facts, err := h.knowledge.Search(r.Context(), terms)
	if err != nil {
		writeStoreError(w, err, "failed to search knowledge")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"facts": facts, "count": len(facts)})
}

func (h *KnowledgeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.knowledge.Stats(r.Context())
	if err != nil {
		writeStoreError(w, err, "failed to read knowledge stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type relevantRequest struct {
	Message string `json:"message"`
}

// Relevant returns the verified facts to inject for a message.
func (h *KnowledgeHandler) Relevant(w http.ResponseWriter, r *http.Request) {
	var req relevantRequest
	if !decodeBody(w, r, &req) {
		return
	}
	facts := h.augmenter.RelevantFacts(r.Context(), req.Message)
	writeJSON(w, http.StatusOK, map[string]any{"facts": facts, "count": len(facts)})
}
