package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/rezkam/cadence/internal/domain"
	"github.com/rezkam/cadence/internal/schedule"
	"github.com/samber/mo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

const instrumentationName = "github.com/rezkam/cadence/internal/application/importer"

// ErrInvalidYearRange indicates an import window whose first year is after its last.
var ErrInvalidYearRange = errors.New("from year must not be after to year")

// DefaultMaxYears bounds the number of calendar years a single import may populate.
const DefaultMaxYears = 50

// Store persists an imported definition with its instances in one transaction.
// tracker.Service satisfies it.
type Store interface {
	ImportDefinition(ctx context.Context, def *domain.Definition, instances []domain.Instance, through civil.Date) (*domain.Definition, error)
}

// InstanceGenerator builds pending instances for a definition within a window.
type InstanceGenerator interface {
	GenerateInstances(def *domain.Definition, from, to civil.Date) ([]domain.Instance, error)
}

// Outcome classifies what happened to a row.
type Outcome string

const (
	OutcomeImported Outcome = "imported"
	OutcomeFellBack Outcome = "fell_back" // imported under the fallback rule
	OutcomeInvalid  Outcome = "invalid"
	OutcomeFailed   Outcome = "failed"
	OutcomePreview  Outcome = "preview"
)

// RowReport describes how one spreadsheet row was interpreted and, after
// Import, what happened to it.
type RowReport struct {
	Row         Row
	Rule        domain.Rule
	Pattern     string
	Description string
	FellBack    bool

	Outcome      Outcome
	DefinitionID string
	Instances    int
	Err          error
}

// Summary is the per-row result of an import, in row order.
type Summary struct {
	Reports  []RowReport
	Imported int
	FellBack int
	Invalid  int
	Failed   int
}

// Importer turns spreadsheet rows into definitions and populated instances.
// Rows are parsed and generated concurrently, then persisted one at a time in row order.
type Importer struct {
	store       Store
	generator   InstanceGenerator
	parser      *schedule.Parser
	concurrency int
	maxYears    int
	now         func() time.Time
	rowCounter  metric.Int64Counter
}

// Option is a functional option for configuring Importer.
type Option func(*Importer)

// WithConcurrency bounds how many rows are parsed and generated at once.
func WithConcurrency(n int) Option {
	return func(im *Importer) {
		im.concurrency = n
	}
}

// WithParser sets the parser used for the when column.
func WithParser(p *schedule.Parser) Option {
	return func(im *Importer) {
		im.parser = p
	}
}

// WithMaxYears bounds the number of calendar years a single import may populate.
func WithMaxYears(n int) Option {
	return func(im *Importer) {
		im.maxYears = n
	}
}

// WithClock overrides the clock used for definition timestamps.
func WithClock(now func() time.Time) Option {
	return func(im *Importer) {
		im.now = now
	}
}

// New creates an Importer. Row outcomes are counted on the global meter provider.
func New(store Store, generator InstanceGenerator, opts ...Option) (*Importer, error) {
	im := &Importer{
		store:       store,
		generator:   generator,
		parser:      schedule.NewParser(),
		concurrency: runtime.GOMAXPROCS(0),
		maxYears:    DefaultMaxYears,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(im)
	}
	if im.concurrency <= 0 {
		im.concurrency = 1
	}

	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"cadence.import.rows",
		metric.WithDescription("Spreadsheet rows processed by the importer, by outcome"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create row counter: %w", err)
	}
	im.rowCounter = counter

	return im, nil
}

// Preview interprets rows without generating or persisting anything.
func (im *Importer) Preview(ctx context.Context, rows []Row) []RowReport {
	reports := make([]RowReport, len(rows))
	for i, row := range rows {
		report := im.interpret(ctx, row)
		if _, err := domain.NewTitle(row.Title); err != nil {
			report.Outcome = OutcomeInvalid
			report.Err = err
		}
		reports[i] = report
	}
	return reports
}

// prepared is a row ready to persist: its definition and generated instances.
type prepared struct {
	report    RowReport
	def       *domain.Definition
	instances []domain.Instance
}

// Import parses every row, generates its instances for Jan 1 of fromYear through
// Dec 31 of toYear, and persists each definition. Invalid rows are reported and
// skipped; the batch continues.
func (im *Importer) Import(ctx context.Context, rows []Row, fromYear, toYear int) (*Summary, error) {
	if fromYear > toYear {
		return nil, ErrInvalidYearRange
	}
	if toYear-fromYear >= im.maxYears {
		return nil, fmt.Errorf("%w: %d years exceeds %d", domain.ErrWindowTooLarge, toYear-fromYear+1, im.maxYears)
	}
	from := civil.Date{Year: fromYear, Month: time.January, Day: 1}
	to := civil.Date{Year: toYear, Month: time.December, Day: 31}

	results := make([]mo.Result[prepared], len(rows))
	reports := make([]RowReport, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)
	for i, row := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = im.interpret(gctx, row)
			results[i] = im.prepare(reports[i], from, to)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("import cancelled: %w", err)
	}

	summary := &Summary{Reports: make([]RowReport, 0, len(rows))}
	for i, result := range results {
		report := reports[i]

		p, err := result.Get()
		if err != nil {
			report.Outcome = OutcomeInvalid
			report.Err = err
			slog.WarnContext(ctx, "Skipping invalid spreadsheet row",
				"line", report.Row.Line,
				"title", report.Row.Title,
				"error", err)
			im.record(ctx, summary, report)
			continue
		}

		if _, err := im.store.ImportDefinition(ctx, p.def, p.instances, to); err != nil {
			p.report.Outcome = OutcomeFailed
			p.report.Err = err
			slog.ErrorContext(ctx, "Failed to persist spreadsheet row",
				"line", report.Row.Line,
				"title", report.Row.Title,
				"error", err)
			im.record(ctx, summary, p.report)
			continue
		}

		p.report.Outcome = OutcomeImported
		if p.report.FellBack {
			p.report.Outcome = OutcomeFellBack
		}
		im.record(ctx, summary, p.report)
	}

	slog.InfoContext(ctx, "Spreadsheet import finished",
		"rows", len(rows),
		"imported", summary.Imported,
		"fell_back", summary.FellBack,
		"invalid", summary.Invalid,
		"failed", summary.Failed)

	return summary, nil
}

// interpret parses a row's when column. Fallbacks are logged and flagged.
func (im *Importer) interpret(ctx context.Context, row Row) RowReport {
	result := im.parser.Parse(row.When)
	if result.FellBack() {
		slog.WarnContext(ctx, "Unrecognized schedule text, using January 1 yearly",
			"line", row.Line,
			"title", row.Title,
			"when", row.When)
	}

	return RowReport{
		Row:         row,
		Rule:        result.Rule,
		Pattern:     result.Pattern,
		Description: schedule.Describe(result.Rule),
		FellBack:    result.FellBack(),
		Outcome:     OutcomePreview,
	}
}

// prepare builds the definition and its instances for a row.
func (im *Importer) prepare(report RowReport, from, to civil.Date) mo.Result[prepared] {
	title, err := domain.NewTitle(report.Row.Title)
	if err != nil {
		return mo.Err[prepared](err)
	}

	idObj, err := uuid.NewV7()
	if err != nil {
		return mo.Err[prepared](fmt.Errorf("failed to generate id: %w", err))
	}

	now := im.now().UTC()
	def := &domain.Definition{
		ID:        idObj.String(),
		Category:  strings.TrimSpace(report.Row.Category),
		Title:     title.String(),
		Notes:     strings.TrimSpace(report.Row.Notes),
		Rule:      report.Rule,
		CreatedAt: now,
		UpdatedAt: now,
	}

	instances, err := im.generator.GenerateInstances(def, from, to)
	if err != nil {
		return mo.Err[prepared](err)
	}

	report.DefinitionID = def.ID
	report.Instances = len(instances)
	return mo.Ok(prepared{report: report, def: def, instances: instances})
}

func (im *Importer) record(ctx context.Context, summary *Summary, report RowReport) {
	switch report.Outcome {
	case OutcomeImported:
		summary.Imported++
	case OutcomeFellBack:
		summary.FellBack++
	case OutcomeInvalid:
		summary.Invalid++
	case OutcomeFailed:
		summary.Failed++
	}
	summary.Reports = append(summary.Reports, report)
	im.rowCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(report.Outcome))))
}
