package handler

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/rezkam/cadence/internal/application/importer"
	"github.com/rezkam/cadence/internal/domain"
	"github.com/rezkam/cadence/internal/schedule"
)

// DefinitionDTO is the wire form of a definition.
type DefinitionDTO struct {
	ID               string          `json:"id"`
	Category         string          `json:"category"`
	Title            string          `json:"title"`
	Notes            string          `json:"notes,omitempty"`
	Rule             domain.RuleJSON `json:"rule"`
	Description      string          `json:"description"`
	GeneratedThrough *civil.Date     `json:"generatedThrough,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// InstanceDTO is the wire form of an instance.
type InstanceDTO struct {
	ID           string     `json:"id"`
	DefinitionID string     `json:"definitionId"`
	OccursOn     civil.Date `json:"occursOn"`
	Status       string     `json:"status"`
	Notes        string     `json:"notes,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// RowReportDTO is the wire form of one import row's outcome.
type RowReportDTO struct {
	Line         int             `json:"line"`
	Category     string          `json:"category"`
	Title        string          `json:"title"`
	When         string          `json:"when"`
	Rule         domain.RuleJSON `json:"rule"`
	Pattern      string          `json:"pattern"`
	Description  string          `json:"description"`
	FellBack     bool            `json:"fellBack"`
	Outcome      string          `json:"outcome"`
	DefinitionID string          `json:"definitionId,omitempty"`
	Instances    int             `json:"instances"`
	Error        string          `json:"error,omitempty"`
}

// ImportSummaryDTO is the wire form of an import run.
type ImportSummaryDTO struct {
	Imported int            `json:"imported"`
	FellBack int            `json:"fellBack"`
	Invalid  int            `json:"invalid"`
	Failed   int            `json:"failed"`
	Rows     []RowReportDTO `json:"rows"`
}

// MapDefinitionToDTO converts a domain definition to its wire form.
func MapDefinitionToDTO(def *domain.Definition) DefinitionDTO {
	return DefinitionDTO{
		ID:               def.ID,
		Category:         def.Category,
		Title:            def.Title,
		Notes:            def.Notes,
		Rule:             domain.RuleJSON{Rule: def.Rule},
		Description:      schedule.Describe(def.Rule),
		GeneratedThrough: def.GeneratedThrough,
		CreatedAt:        def.CreatedAt,
		UpdatedAt:        def.UpdatedAt,
	}
}

// MapInstanceToDTO converts a domain instance to its wire form.
func MapInstanceToDTO(inst *domain.Instance) InstanceDTO {
	return InstanceDTO{
		ID:           inst.ID,
		DefinitionID: inst.DefinitionID,
		OccursOn:     inst.OccursOn,
		Status:       string(inst.Status),
		Notes:        inst.Notes,
		CompletedAt:  inst.CompletedAt,
		CreatedAt:    inst.CreatedAt,
		UpdatedAt:    inst.UpdatedAt,
	}
}

// MapRowReportToDTO converts an importer row report to its wire form.
func MapRowReportToDTO(report importer.RowReport) RowReportDTO {
	dto := RowReportDTO{
		Line:         report.Row.Line,
		Category:     report.Row.Category,
		Title:        report.Row.Title,
		When:         report.Row.When,
		Rule:         domain.RuleJSON{Rule: report.Rule},
		Pattern:      report.Pattern,
		Description:  report.Description,
		FellBack:     report.FellBack,
		Outcome:      string(report.Outcome),
		DefinitionID: report.DefinitionID,
		Instances:    report.Instances,
	}
	if report.Err != nil {
		dto.Error = report.Err.Error()
	}
	return dto
}

// MapImportSummaryToDTO converts an import summary to its wire form.
func MapImportSummaryToDTO(summary *importer.Summary) ImportSummaryDTO {
	return ImportSummaryDTO{
		Imported: summary.Imported,
		FellBack: summary.FellBack,
		Invalid:  summary.Invalid,
		Failed:   summary.Failed,
		Rows:     mapReports(summary.Reports),
	}
}

// MapRowReportsToDTO converts importer row reports to their wire form.
func MapRowReportsToDTO(reports []importer.RowReport) []RowReportDTO {
	return mapReports(reports)
}

func mapDefinitions(defs []*domain.Definition) []DefinitionDTO {
	out := make([]DefinitionDTO, 0, len(defs))
	for _, def := range defs {
		out = append(out, MapDefinitionToDTO(def))
	}
	return out
}

func mapInstances(instances []*domain.Instance) []InstanceDTO {
	out := make([]InstanceDTO, 0, len(instances))
	for _, inst := range instances {
		out = append(out, MapInstanceToDTO(inst))
	}
	return out
}

func mapReports(reports []importer.RowReport) []RowReportDTO {
	out := make([]RowReportDTO, 0, len(reports))
	for _, report := range reports {
		out = append(out, MapRowReportToDTO(report))
	}
	return out
}
