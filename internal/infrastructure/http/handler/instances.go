package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rezkam/cadence/internal/domain"
	"github.com/rezkam/cadence/internal/infrastructure/http/response"
)

// AnnotateRequest is the body of PUT /v1/instances/{id}/notes.
type AnnotateRequest struct {
	Notes string `json:"notes"`
}

// ListInstancesResponse wraps an instance listing.
type ListInstancesResponse struct {
	Instances []InstanceDTO `json:"instances"`
}

// ListInstances lists instances ordered by date.
// GET /v1/instances?definition_id=&from=&to=&status=&limit=
func (h *Handler) ListInstances(w http.ResponseWriter, r *http.Request) {
	var params domain.ListInstancesParams
	query := r.URL.Query()

	if id := query.Get("definition_id"); id != "" {
		params.DefinitionID = &id
	}
	if raw := query.Get("status"); raw != "" {
		status, err := domain.NewInstanceStatus(raw)
		if err != nil {
			response.FromDomainError(w, r, err)
			return
		}
		params.Status = &status
	}

	var ok bool
	if params.From, ok = queryDate(w, r, "from"); !ok {
		return
	}
	if params.To, ok = queryDate(w, r, "to"); !ok {
		return
	}
	if params.Limit, ok = queryInt(w, r, "limit", 0); !ok {
		return
	}

	instances, err := h.tracker.ListInstances(r.Context(), params)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}
	response.OK(w, ListInstancesResponse{Instances: mapInstances(instances)})
}

// CompleteInstance marks an instance completed.
// POST /v1/instances/{instanceID}/complete
func (h *Handler) CompleteInstance(w http.ResponseWriter, r *http.Request) {
	h.respondInstance(w, r)(h.tracker.CompleteInstance(r.Context(), chi.URLParam(r, "instanceID")))
}

// SkipInstance marks an instance skipped.
// POST /v1/instances/{instanceID}/skip
func (h *Handler) SkipInstance(w http.ResponseWriter, r *http.Request) {
	h.respondInstance(w, r)(h.tracker.SkipInstance(r.Context(), chi.URLParam(r, "instanceID")))
}

// ReopenInstance moves an instance back to pending.
// POST /v1/instances/{instanceID}/reopen
func (h *Handler) ReopenInstance(w http.ResponseWriter, r *http.Request) {
	h.respondInstance(w, r)(h.tracker.ReopenInstance(r.Context(), chi.URLParam(r, "instanceID")))
}

// AnnotateInstance replaces an instance's notes.
// PUT /v1/instances/{instanceID}/notes
func (h *Handler) AnnotateInstance(w http.ResponseWriter, r *http.Request) {
	var req AnnotateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.respondInstance(w, r)(h.tracker.AnnotateInstance(r.Context(), chi.URLParam(r, "instanceID"), req.Notes))
}

func (h *Handler) respondInstance(w http.ResponseWriter, r *http.Request) func(*domain.Instance, error) {
	return func(inst *domain.Instance, err error) {
		if err != nil {
			response.FromDomainError(w, r, err)
			return
		}
		response.OK(w, MapInstanceToDTO(inst))
	}
}
