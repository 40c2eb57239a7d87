package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rezkam/cadence/internal/application/importer"
	"github.com/rezkam/cadence/internal/application/tracker"
	"github.com/rezkam/cadence/internal/domain"
	apihttp "github.com/rezkam/cadence/internal/infrastructure/http"
	"github.com/rezkam/cadence/internal/infrastructure/http/handler"
	"github.com/rezkam/cadence/internal/infrastructure/http/response"
	"github.com/rezkam/cadence/internal/infrastructure/persistence/sqlite"
	"github.com/rezkam/cadence/internal/recurring"
	"github.com/rezkam/cadence/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)
}

// newTestServer wires the full HTTP stack over an in-memory SQLite store.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	store, err := sqlite.NewStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	generator := recurring.NewDomainGenerator()
	trackerService := tracker.NewService(store, generator, tracker.Config{Now: fixedNow})
	parser := schedule.NewParser(schedule.WithClock(fixedNow))
	imp, err := importer.New(trackerService, generator, importer.WithParser(parser), importer.WithClock(fixedNow))
	require.NoError(t, err)

	h := handler.NewHandler(trackerService, imp, parser)
	apiHandler, err := h.Routes()
	require.NoError(t, err)
	return apihttp.NewRouter(apiHandler, apihttp.ServerConfig{})
}

func do(t *testing.T, srv http.Handler, method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func doJSON(t *testing.T, srv http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	if body == "" {
		return do(t, srv, method, path, "", nil)
	}
	return do(t, srv, method, path, "application/json", strings.NewReader(body))
}

func doCSV(t *testing.T, srv http.Handler, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, srv, http.MethodPost, path, "text/csv", body)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/nope", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParseSchedule(t *testing.T) {
	srv := newTestServer(t)

	t.Run("recognized phrase", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/schedules/parse", `{"text":"Second Tuesday"}`)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[handler.ParseScheduleResponse](t, w)
		assert.False(t, resp.FellBack)
		assert.Equal(t, schedule.PatternNthWeekday, resp.Pattern)
		assert.Equal(t, "Second Tuesday of every month", resp.Description)
		assert.Equal(t, domain.NthWeekdayRule{N: 2, DayOfWeek: 2}, resp.Rule.Rule)
	})

	t.Run("unrecognized phrase falls back", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/schedules/parse", `{"text":"garbled xyz"}`)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[handler.ParseScheduleResponse](t, w)
		assert.True(t, resp.FellBack)
		assert.Equal(t, schedule.PatternFallback, resp.Pattern)
		assert.Equal(t, domain.YearlyRule{Month: 1, DayOfMonth: 1}, resp.Rule.Rule)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/schedules/parse", `{"text":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPreviewRule(t *testing.T) {
	srv := newTestServer(t)

	t.Run("second tuesday", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/rules/preview",
			`{"rule":{"type":"nthWeekday","n":2,"dayOfWeek":2},"from":"2026-01-01","to":"2026-03-31"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"dates":["2026-01-13","2026-02-10","2026-03-10"]}`, w.Body.String())
	})

	t.Run("window too large", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/rules/preview",
			`{"rule":{"type":"daily"},"from":"2026-01-01","to":"2080-01-01"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[response.ErrorResponse](t, w)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "window", resp.Error.Details[0].Field)
	})

	t.Run("invalid rule", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/rules/preview",
			`{"rule":{"type":"monthly","dayOfMonth":40},"from":"2026-01-01","to":"2026-12-31"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[response.ErrorResponse](t, w)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "rule.dayOfMonth", resp.Error.Details[0].Field)
	})

	t.Run("missing rule", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/rules/preview", `{"from":"2026-01-01","to":"2026-12-31"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown rule type", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/rules/preview",
			`{"rule":{"type":"hourly"},"from":"2026-01-01","to":"2026-12-31"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDefinitionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/definitions",
		`{"category":"Payroll","title":"Deposit withholding","rule":{"type":"monthly","dayOfMonth":15}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[handler.DefinitionDTO](t, w)
	assert.Equal(t, "Deposit withholding", created.Title)
	assert.Equal(t, "Monthly on day 15", created.Description)
	require.NotNil(t, created.GeneratedThrough)
	assert.Equal(t, "2027-12-31", created.GeneratedThrough.String())

	w = doJSON(t, srv, http.MethodGet, "/api/v1/definitions/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.MonthlyRule{DayOfMonth: 15}, decode[handler.DefinitionDTO](t, w).Rule.Rule)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/definitions?category=Payroll", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[handler.ListDefinitionsResponse](t, w).Definitions, 1)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/definitions?category=Safety", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[handler.ListDefinitionsResponse](t, w).Definitions)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/instances?definition_id="+created.ID+"&from=2026-01-01&to=2026-12-31", "")
	require.Equal(t, http.StatusOK, w.Code)
	instances := decode[handler.ListInstancesResponse](t, w).Instances
	require.Len(t, instances, 12)
	assert.Equal(t, "2026-01-15", instances[0].OccursOn.String())
	assert.Equal(t, "pending", instances[0].Status)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/definitions/"+created.ID+"/rrule", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode[handler.RRuleResponse](t, w).RRule, "FREQ=MONTHLY")

	w = doJSON(t, srv, http.MethodPost, "/api/v1/definitions/"+created.ID+"/populate", `{"from":"2028-01-01","to":"2028-12-31"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 12, decode[handler.PopulateResponse](t, w).Inserted)

	w = doJSON(t, srv, http.MethodPut, "/api/v1/definitions/"+created.ID+"/rule", `{"rule":{"type":"quarterly","monthOfQuarter":1,"dayOfMonth":31}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.QuarterlyRule{MonthOfQuarter: 1, DayOfMonth: 31}, decode[handler.DefinitionDTO](t, w).Rule.Rule)

	w = doJSON(t, srv, http.MethodDelete, "/api/v1/definitions/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/definitions/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateDefinition_Validation(t *testing.T) {
	srv := newTestServer(t)

	t.Run("missing title", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/definitions", `{"title":"  ","rule":{"type":"daily"}}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[response.ErrorResponse](t, w)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "title", resp.Error.Details[0].Field)
	})

	t.Run("missing rule", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/definitions", `{"title":"Audit"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rrule not expressible", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/definitions", `{"title":"Incident log","rule":{"type":"asOccurs"}}`)
		require.Equal(t, http.StatusCreated, w.Code)
		id := decode[handler.DefinitionDTO](t, w).ID

		w = doJSON(t, srv, http.MethodGet, "/api/v1/definitions/"+id+"/rrule", "")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestInstanceTransitions(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/definitions",
		`{"category":"Tax","title":"Sales tax","rule":{"type":"oneTime","date":"2026-11-30"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	defID := decode[handler.DefinitionDTO](t, w).ID

	w = doJSON(t, srv, http.MethodGet, "/api/v1/instances?definition_id="+defID, "")
	require.Equal(t, http.StatusOK, w.Code)
	instances := decode[handler.ListInstancesResponse](t, w).Instances
	require.Len(t, instances, 1)
	base := "/api/v1/instances/" + instances[0].ID

	w = doJSON(t, srv, http.MethodPost, base+"/complete", "")
	require.Equal(t, http.StatusOK, w.Code)
	completed := decode[handler.InstanceDTO](t, w)
	assert.Equal(t, "completed", completed.Status)
	require.NotNil(t, completed.CompletedAt)
	assert.True(t, fixedNow().Equal(*completed.CompletedAt))

	w = doJSON(t, srv, http.MethodGet, "/api/v1/instances?status=completed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[handler.ListInstancesResponse](t, w).Instances, 1)

	w = doJSON(t, srv, http.MethodPut, base+"/notes", `{"notes":"  filed via portal "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "filed via portal", decode[handler.InstanceDTO](t, w).Notes)

	w = doJSON(t, srv, http.MethodPost, base+"/reopen", "")
	require.Equal(t, http.StatusOK, w.Code)
	reopened := decode[handler.InstanceDTO](t, w)
	assert.Equal(t, "pending", reopened.Status)
	assert.Nil(t, reopened.CompletedAt)

	w = doJSON(t, srv, http.MethodPost, base+"/skip", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "skipped", decode[handler.InstanceDTO](t, w).Status)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/instances/"+uuid.NewString()+"/complete", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListInstances_InvalidQuery(t *testing.T) {
	srv := newTestServer(t)

	for _, query := range []string{
		"from=2026-13-01",
		"to=yesterday",
		"status=done",
		"limit=ten",
		"from=2026-12-01&to=2026-01-01",
	} {
		t.Run(query, func(t *testing.T) {
			w := doJSON(t, srv, http.MethodGet, "/api/v1/instances?"+query, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

const spreadsheet = `Category,Task,When,Notes
Payroll,File 941,Jan 31 / Apr 30,quarterly return
Safety,Fire drill,garbled xyz,
Legal,,Monthly,
`

func TestImports(t *testing.T) {
	srv := newTestServer(t)

	t.Run("preview", func(t *testing.T) {
		w := doCSV(t, srv, "/api/v1/imports/preview", strings.NewReader(spreadsheet))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		rows := decode[handler.PreviewImportResponse](t, w).Rows
		require.Len(t, rows, 3)
		assert.Equal(t, "preview", rows[0].Outcome)
		assert.False(t, rows[0].FellBack)
		assert.True(t, rows[1].FellBack)
		assert.Equal(t, "invalid", rows[2].Outcome)

		w = doJSON(t, srv, http.MethodGet, "/api/v1/definitions", "")
		assert.Empty(t, decode[handler.ListDefinitionsResponse](t, w).Definitions)
	})

	t.Run("run", func(t *testing.T) {
		w := doCSV(t, srv, "/api/v1/imports?from_year=2026&to_year=2026", bytes.NewBufferString(spreadsheet))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		summary := decode[handler.ImportSummaryDTO](t, w)
		assert.Equal(t, 1, summary.Imported)
		assert.Equal(t, 1, summary.FellBack)
		assert.Equal(t, 1, summary.Invalid)
		require.Len(t, summary.Rows, 3)
		assert.Equal(t, 2, summary.Rows[0].Instances)

		w = doJSON(t, srv, http.MethodGet, "/api/v1/definitions", "")
		assert.Len(t, decode[handler.ListDefinitionsResponse](t, w).Definitions, 2)
	})

	t.Run("year range reversed", func(t *testing.T) {
		w := doCSV(t, srv, "/api/v1/imports?from_year=2027&to_year=2026", strings.NewReader(spreadsheet))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing column", func(t *testing.T) {
		w := doCSV(t, srv, "/api/v1/imports/preview", strings.NewReader("Category,Task\nPayroll,File 941\n"))
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[response.ErrorResponse](t, w)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "csv", resp.Error.Details[0].Field)
	})
}

func TestRequestValidation(t *testing.T) {
	srv := newTestServer(t)

	t.Run("unknown body field", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/rules/preview",
			`{"rule":{"type":"daily"},"from":"2024-01-01","to":"2024-01-31","bogus":1}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[response.ErrorResponse](t, w)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "bogus", resp.Error.Details[0].Field)
	})

	t.Run("unknown rule field", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPost, "/api/v1/definitions",
			`{"title":"Audit","rule":{"type":"daily","hour":9}}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[response.ErrorResponse](t, w)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "rule.hour", resp.Error.Details[0].Field)
	})

	t.Run("wrong field type", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodPut, "/api/v1/instances/"+uuid.NewString()+"/notes", `{"notes":42}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[response.ErrorResponse](t, w)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "notes", resp.Error.Details[0].Field)
	})

	t.Run("non-integer query parameter", func(t *testing.T) {
		w := doJSON(t, srv, http.MethodGet, "/api/v1/instances?limit=ten", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decode[response.ErrorResponse](t, w)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "limit", resp.Error.Details[0].Field)
	})

	t.Run("unsupported content type", func(t *testing.T) {
		w := do(t, srv, http.MethodPost, "/api/v1/imports/preview", "application/json", strings.NewReader(`{}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", decode[response.ErrorResponse](t, w).Error.Code)
	})

	t.Run("ragged spreadsheet rows pass through", func(t *testing.T) {
		w := doCSV(t, srv, "/api/v1/imports/preview", strings.NewReader("Category,Task,When\nPayroll,File 941,Monthly,extra\n"))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Len(t, decode[handler.PreviewImportResponse](t, w).Rows, 1)
	})
}
