package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezkam/cadence/internal/infrastructure/http/middleware"
	"github.com/rezkam/cadence/internal/infrastructure/http/response"
)

const notesSpec = `
openapi: 3.0.3
info: {title: test, version: "1"}
paths:
  /v1/notes:
    get:
      parameters:
        - {name: limit, in: query, schema: {type: integer, minimum: 0}}
      responses:
        '200': {description: ok}
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              additionalProperties: false
              required: [text]
              properties:
                text: {type: string}
                due: {type: string, format: date}
      responses:
        '201': {description: created}
`

func newValidated(t *testing.T) http.Handler {
	t.Helper()

	spec, err := openapi3.NewLoader().LoadFromData([]byte(notesSpec))
	require.NoError(t, err)

	return middleware.NewValidator(spec, middleware.ValidationConfig{MultiError: true})(echo())
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNewValidator(t *testing.T) {
	h := newValidated(t)

	t.Run("valid request reaches handler with body intact", func(t *testing.T) {
		w := serve(h, http.MethodPost, "/api/v1/notes", `{"text":"file 941","due":"2026-01-31"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"text":"file 941","due":"2026-01-31"}`, w.Body.String())
	})

	tests := []struct {
		name   string
		method string
		target string
		body   string
		field  string
	}{
		{"unknown property", http.MethodPost, "/api/v1/notes", `{"text":"x","bogus":1}`, "bogus"},
		{"wrong type", http.MethodPost, "/api/v1/notes", `{"text":7}`, "text"},
		{"non-integer query", http.MethodGet, "/api/v1/notes?limit=ten", "", "limit"},
		{"below minimum query", http.MethodGet, "/api/v1/notes?limit=-1", "", "limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h, tt.method, tt.target, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var resp response.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
			require.Len(t, resp.Error.Details, 1)
			assert.Equal(t, tt.field, resp.Error.Details[0].Field)
			assert.NotEmpty(t, resp.Error.Details[0].Issue)
			assert.NotContains(t, resp.Error.Details[0].Issue, "\n")
		})
	}

	t.Run("missing body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/notes", nil)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code)
		var resp response.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "body", resp.Error.Details[0].Field)
	})
}
