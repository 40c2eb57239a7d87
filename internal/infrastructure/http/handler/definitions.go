package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"

	"github.com/rezkam/cadence/internal/application/tracker"
	"github.com/rezkam/cadence/internal/domain"
	"github.com/rezkam/cadence/internal/infrastructure/http/response"
)

// CreateDefinitionRequest is the body of POST /v1/definitions.
type CreateDefinitionRequest struct {
	Category string          `json:"category"`
	Title    string          `json:"title"`
	Notes    string          `json:"notes"`
	Rule     domain.RuleJSON `json:"rule"`
}

// UpdateRuleRequest is the body of PUT /v1/definitions/{id}/rule.
type UpdateRuleRequest struct {
	Rule domain.RuleJSON `json:"rule"`
}

// PopulateRequest is the body of POST /v1/definitions/{id}/populate.
type PopulateRequest struct {
	From civil.Date `json:"from"`
	To   civil.Date `json:"to"`
}

// PopulateResponse reports how many new instances were inserted.
type PopulateResponse struct {
	Inserted int `json:"inserted"`
}

// RRuleResponse carries an RFC 5545 RRULE export.
type RRuleResponse struct {
	RRule string `json:"rrule"`
}

// ListDefinitionsResponse wraps a definition listing.
type ListDefinitionsResponse struct {
	Definitions []DefinitionDTO `json:"definitions"`
}

// CreateDefinition creates a definition and populates its horizon.
// POST /v1/definitions
func (h *Handler) CreateDefinition(w http.ResponseWriter, r *http.Request) {
	var req CreateDefinitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	def, err := h.tracker.CreateDefinition(r.Context(), tracker.CreateDefinitionInput{
		Category: req.Category,
		Title:    req.Title,
		Notes:    req.Notes,
		Rule:     req.Rule.Rule,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create definition via HTTP",
			"title", req.Title,
			"error", err)
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "definition created via HTTP",
		"definition_id", def.ID,
		"rule_type", def.Rule.Type())

	response.Created(w, MapDefinitionToDTO(def))
}

// ListDefinitions lists definitions, optionally filtered by category.
// GET /v1/definitions?category=
func (h *Handler) ListDefinitions(w http.ResponseWriter, r *http.Request) {
	var params domain.ListDefinitionsParams
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		params.Category = &category
	}

	defs, err := h.tracker.ListDefinitions(r.Context(), params)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, ListDefinitionsResponse{Definitions: mapDefinitions(defs)})
}

// GetDefinition returns one definition.
// GET /v1/definitions/{definitionID}
func (h *Handler) GetDefinition(w http.ResponseWriter, r *http.Request) {
	def, err := h.tracker.GetDefinition(r.Context(), chi.URLParam(r, "definitionID"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, MapDefinitionToDTO(def))
}

// DeleteDefinition deletes a definition and all of its instances.
// DELETE /v1/definitions/{definitionID}
func (h *Handler) DeleteDefinition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "definitionID")
	if err := h.tracker.DeleteDefinition(r.Context(), id); err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "definition deleted via HTTP", "definition_id", id)
	response.NoContent(w)
}

// UpdateDefinitionRule replaces a definition's rule and regenerates pending instances.
// PUT /v1/definitions/{definitionID}/rule
func (h *Handler) UpdateDefinitionRule(w http.ResponseWriter, r *http.Request) {
	var req UpdateRuleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "definitionID")
	def, err := h.tracker.UpdateDefinitionRule(r.Context(), id, req.Rule.Rule)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to update definition rule via HTTP",
			"definition_id", id,
			"error", err)
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, MapDefinitionToDTO(def))
}

// GetDefinitionRRule exports a definition's rule as an RRULE string.
// GET /v1/definitions/{definitionID}/rrule
func (h *Handler) GetDefinitionRRule(w http.ResponseWriter, r *http.Request) {
	rrule, err := h.tracker.DefinitionRRule(r.Context(), chi.URLParam(r, "definitionID"))
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, RRuleResponse{RRule: rrule})
}

// PopulateDefinition inserts missing instances for a window.
// POST /v1/definitions/{definitionID}/populate
func (h *Handler) PopulateDefinition(w http.ResponseWriter, r *http.Request) {
	var req PopulateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	inserted, err := h.tracker.PopulateWindow(r.Context(), chi.URLParam(r, "definitionID"), req.From, req.To)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, PopulateResponse{Inserted: inserted})
}
