package handler

import (
	"log/slog"
	"net/http"

	"cloud.google.com/go/civil"

	"github.com/rezkam/cadence/internal/domain"
	"github.com/rezkam/cadence/internal/infrastructure/http/response"
	"github.com/rezkam/cadence/internal/schedule"
)

// ParseScheduleRequest carries a free-text schedule phrase.
type ParseScheduleRequest struct {
	Text string `json:"text"`
}

// ParseScheduleResponse is the interpreted rule for a phrase.
type ParseScheduleResponse struct {
	Rule        domain.RuleJSON `json:"rule"`
	FellBack    bool            `json:"fellBack"`
	Pattern     string          `json:"pattern"`
	Description string          `json:"description"`
}

// PreviewRuleRequest asks for the dates a rule produces in a window.
type PreviewRuleRequest struct {
	Rule domain.RuleJSON `json:"rule"`
	From civil.Date      `json:"from"`
	To   civil.Date      `json:"to"`
}

// PreviewRuleResponse lists generated dates in ascending order.
type PreviewRuleResponse struct {
	Dates []civil.Date `json:"dates"`
}

// ParseSchedule interprets a free-text phrase.
// POST /v1/schedules/parse
func (h *Handler) ParseSchedule(w http.ResponseWriter, r *http.Request) {
	var req ParseScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result := h.parser.Parse(req.Text)
	if result.FellBack() {
		slog.InfoContext(r.Context(), "Schedule text fell back to default rule", "text", req.Text)
	}

	response.OK(w, ParseScheduleResponse{
		Rule:        domain.RuleJSON{Rule: result.Rule},
		FellBack:    result.FellBack(),
		Pattern:     result.Pattern,
		Description: schedule.Describe(result.Rule),
	})
}

// PreviewRule generates dates for a rule without persisting anything.
// POST /v1/rules/preview
func (h *Handler) PreviewRule(w http.ResponseWriter, r *http.Request) {
	var req PreviewRuleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Rule.Rule == nil {
		response.ValidationError(w, "rule", "required field missing")
		return
	}

	dates, err := h.tracker.PreviewRule(req.Rule.Rule, req.From, req.To)
	if err != nil {
		response.FromDomainError(w, r, err)
		return
	}

	response.OK(w, PreviewRuleResponse{Dates: dates})
}
