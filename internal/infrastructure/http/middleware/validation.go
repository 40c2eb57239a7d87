package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	nethttpmiddleware "github.com/oapi-codegen/nethttp-middleware"

	"github.com/rezkam/cadence/internal/infrastructure/http/response"
)

func init() {
	// Spreadsheet uploads are parsed by the importer, which tolerates ragged rows.
	openapi3filter.RegisterBodyDecoder("text/csv", rawBodyDecoder)
}

// ValidationConfig holds configuration for the OpenAPI validation middleware.
type ValidationConfig struct {
	// MultiError when true collects all validation errors instead of stopping at first.
	MultiError bool
}

// NewValidator creates OpenAPI request validation middleware.
// Requests that do not match the spec are rejected with a 400 before any handler runs.
func NewValidator(spec *openapi3.T, config ValidationConfig) func(http.Handler) http.Handler {
	// Match the router mount point without host validation
	spec.Servers = openapi3.Servers{
		{URL: "/api"},
	}

	opts := &nethttpmiddleware.Options{
		Options: openapi3filter.Options{
			MultiError: config.MultiError,
			// The API has no security schemes
			AuthenticationFunc: func(_ context.Context, _ *openapi3filter.AuthenticationInput) error {
				return nil
			},
		},
		ErrorHandlerWithOpts:  validationErrorHandler,
		SilenceServersWarning: true, // relative /api server, no host
	}

	return nethttpmiddleware.OapiRequestValidatorWithOptions(spec, opts)
}

// validationErrorHandler writes validation failures in the standard error format.
func validationErrorHandler(ctx context.Context, err error, w http.ResponseWriter, r *http.Request, opts nethttpmiddleware.ErrorHandlerOpts) {
	details := parseValidationError(err)

	slog.WarnContext(ctx, "request validation failed",
		"path", r.URL.Path,
		"method", r.Method,
		"invalid_field_count", len(details),
		"error", err.Error())

	resp := response.ErrorResponse{
		Error: response.ErrorDetail{
			Code:    "VALIDATION_ERROR",
			Message: "validation failed",
			Details: details,
		},
	}

	jsonBytes, encErr := json.Marshal(resp)
	if encErr != nil {
		slog.ErrorContext(ctx, "failed to marshal validation error response",
			"path", r.URL.Path,
			"method", r.Method,
			"error", encErr)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"INTERNAL_ERROR","message":"failed to encode response"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(opts.StatusCode)
	_, _ = w.Write(jsonBytes)
}

// parseValidationError extracts field-specific details from an OpenAPI validation error.
// Only the first recognised error is reported. Returns an empty slice when none is.
//
// Typical messages:
//   - request body has an error: doesn't match schema: Error at "/bogus": property "bogus" is unsupported
//   - parameter "limit" in query has an error: value ten: an invalid integer: invalid syntax
//   - request body has an error: value is required but missing
func parseValidationError(err error) []response.ErrorField {
	if err == nil {
		return []response.ErrorField{}
	}

	errMsg := err.Error()

	patterns := []struct {
		marker  string
		extract func(string) *response.ErrorField
	}{
		{
			marker: `Error at "/`,
			extract: func(msg string) *response.ErrorField {
				field, rest, ok := quotedAfter(msg, `Error at "/`)
				if !ok {
					return nil
				}
				// Nested pointers come back slash separated
				field = strings.ReplaceAll(field, "/", ".")

				colonIdx := strings.Index(rest, ":")
				if colonIdx == -1 || colonIdx+2 >= len(rest) {
					return &response.ErrorField{Field: field, Issue: "validation failed"}
				}
				return &response.ErrorField{Field: field, Issue: firstLine(rest[colonIdx+1:])}
			},
		},
		{
			marker: `parameter "`,
			extract: func(msg string) *response.ErrorField {
				field, rest, ok := quotedAfter(msg, `parameter "`)
				if !ok {
					return nil
				}

				const errorMarker = "has an error:"
				errorIdx := strings.Index(rest, errorMarker)
				if errorIdx == -1 {
					return &response.ErrorField{Field: field, Issue: "invalid parameter"}
				}
				return &response.ErrorField{Field: field, Issue: firstLine(rest[errorIdx+len(errorMarker):])}
			},
		},
		{
			marker: "header Content-Type",
			extract: func(string) *response.ErrorField {
				return &response.ErrorField{Field: "Content-Type", Issue: "unsupported content type"}
			},
		},
		{
			marker: "request body",
			extract: func(msg string) *response.ErrorField {
				switch {
				case strings.Contains(msg, "doesn't match the schema"), strings.Contains(msg, "doesn't match schema"):
					return &response.ErrorField{Field: "body", Issue: "request body doesn't match schema"}
				case strings.Contains(msg, "required"):
					return &response.ErrorField{Field: "body", Issue: "required field missing"}
				default:
					return &response.ErrorField{Field: "body", Issue: "invalid request body"}
				}
			},
		},
	}

	for _, p := range patterns {
		if strings.Contains(errMsg, p.marker) {
			if detail := p.extract(errMsg); detail != nil {
				return []response.ErrorField{*detail}
			}
		}
	}

	return []response.ErrorField{}
}

// quotedAfter returns the text between marker and the next double quote, plus what follows it.
func quotedAfter(msg, marker string) (string, string, bool) {
	idx := strings.Index(msg, marker)
	if idx == -1 {
		return "", "", false
	}
	rest := msg[idx+len(marker):]
	endQuote := strings.Index(rest, `"`)
	if endQuote == -1 {
		return "", "", false
	}
	return rest[:endQuote], rest[endQuote+1:], true
}

// firstLine drops the schema and value dump kin-openapi appends after the reason.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if i := strings.Index(s, " | "); i >= 0 {
		s = s[:i]
	}
	return s
}

// rawBodyDecoder hands the body through as a string so only its presence and media type are checked.
func rawBodyDecoder(body io.Reader, _ http.Header, _ *openapi3.SchemaRef, _ openapi3filter.EncodingFn) (any, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
