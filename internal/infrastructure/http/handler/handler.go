package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"

	"github.com/rezkam/cadence/internal/application/importer"
	"github.com/rezkam/cadence/internal/application/tracker"
	mw "github.com/rezkam/cadence/internal/infrastructure/http/middleware"
	"github.com/rezkam/cadence/internal/infrastructure/http/openapi"
	"github.com/rezkam/cadence/internal/infrastructure/http/response"
	"github.com/rezkam/cadence/internal/schedule"
)

// Handler adapts HTTP requests to tracker and importer calls.
type Handler struct {
	tracker  *tracker.Service
	importer *importer.Importer
	parser   *schedule.Parser
}

// NewHandler creates a new HTTP API handler.
func NewHandler(trackerService *tracker.Service, imp *importer.Importer, parser *schedule.Parser) *Handler {
	if parser == nil {
		parser = schedule.NewParser()
	}
	return &Handler{
		tracker:  trackerService,
		importer: imp,
		parser:   parser,
	}
}

// Routes returns the versioned API router. It is mounted under /api by the server.
// Every request is checked against the embedded OpenAPI document before it reaches a handler.
func (h *Handler) Routes() (http.Handler, error) {
	// Get embedded OpenAPI spec for request validation
	spec, err := openapi.GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("failed to load OpenAPI spec: %w", err)
	}

	r := chi.NewRouter()
	r.Use(mw.NewValidator(spec, mw.ValidationConfig{MultiError: true}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/schedules/parse", h.ParseSchedule)
		r.Post("/rules/preview", h.PreviewRule)

		r.Route("/definitions", func(r chi.Router) {
			r.Post("/", h.CreateDefinition)
			r.Get("/", h.ListDefinitions)
			r.Route("/{definitionID}", func(r chi.Router) {
				r.Get("/", h.GetDefinition)
				r.Delete("/", h.DeleteDefinition)
				r.Put("/rule", h.UpdateDefinitionRule)
				r.Get("/rrule", h.GetDefinitionRRule)
				r.Post("/populate", h.PopulateDefinition)
			})
		})

		r.Route("/instances", func(r chi.Router) {
			r.Get("/", h.ListInstances)
			r.Route("/{instanceID}", func(r chi.Router) {
				r.Post("/complete", h.CompleteInstance)
				r.Post("/skip", h.SkipInstance)
				r.Post("/reopen", h.ReopenInstance)
				r.Put("/notes", h.AnnotateInstance)
			})
		})

		r.Route("/imports", func(r chi.Router) {
			r.Post("/preview", h.PreviewImport)
			r.Post("/", h.RunImport)
		})
	})

	return r, nil
}

// decodeJSON decodes the request body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// queryDate parses an optional YYYY-MM-DD query parameter, writing a 400 on failure.
func queryDate(w http.ResponseWriter, r *http.Request, name string) (*civil.Date, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		response.ValidationError(w, name, "must be a date in YYYY-MM-DD format")
		return nil, false
	}
	return &d, true
}

// queryInt parses an optional integer query parameter, writing a 400 on failure.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		response.ValidationError(w, name, "must be an integer")
		return 0, false
	}
	return n, true
}
