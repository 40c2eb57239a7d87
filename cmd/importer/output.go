package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rezkam/cadence/internal/application/importer"
	"github.com/rezkam/cadence/internal/infrastructure/http/handler"
)

const (
	formatAuto = "auto"
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// outputFormat resolves --format. Auto means text on a terminal, JSON otherwise.
func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case formatText, formatJSON, formatYAML:
		return format, nil
	case formatAuto, "":
		if f, ok := cmd.OutOrStdout().(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			return formatText, nil
		}
		return formatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q", format)
	}
}

func writePreview(w io.Writer, format string, reports []importer.RowReport) error {
	if format != formatText {
		return encode(w, format, struct {
			Rows []handler.RowReportDTO `json:"rows"`
		}{Rows: handler.MapRowReportsToDTO(reports)})
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tTITLE\tWHEN\tSCHEDULE\tNOTE")
	fellBack := 0
	for _, r := range reports {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Row.Line, r.Row.Title, r.Row.When, r.Description, note(r))
		if r.FellBack {
			fellBack++
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s rows, %s unrecognized\n",
		humanize.Comma(int64(len(reports))), humanize.Comma(int64(fellBack)))
	return err
}

func writeSummary(w io.Writer, format string, summary *importer.Summary) error {
	if format != formatText {
		return encode(w, format, handler.MapImportSummaryToDTO(summary))
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LINE\tTITLE\tSCHEDULE\tOUTCOME\tINSTANCES\tNOTE")
	total := 0
	for _, r := range summary.Reports {
		instances := "-"
		if r.Outcome == importer.OutcomeImported || r.Outcome == importer.OutcomeFellBack {
			instances = strconv.Itoa(r.Instances)
			total += r.Instances
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.Row.Line, r.Row.Title, r.Description, r.Outcome, instances, note(r))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nimported %d, fell back %d, invalid %d, failed %d; %s instances created\n",
		summary.Imported, summary.FellBack, summary.Invalid, summary.Failed, humanize.Comma(int64(total)))
	return err
}

func note(r importer.RowReport) string {
	switch {
	case r.Err != nil:
		return r.Err.Error()
	case r.FellBack:
		return "unrecognized, defaulted to January 1 yearly"
	default:
		return ""
	}
}

// encode writes v as indented JSON, or as YAML mirroring the JSON field names.
func encode(w io.Writer, format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if format == formatJSON {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}
