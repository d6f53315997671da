package output

import (
	"fmt"
	"io"

	"github.com/cmgg/labqc/internal/qc"
	"github.com/cmgg/labqc/internal/report"
)

// TextFormatter writes a human-readable summary of the report.
// When Color is true, pass cells render green, warn yellow, fail red.
type TextFormatter struct {
	Color bool
}

// Format writes the general statistics table, each detailed table, and
// any surfaced warnings.
func (f *TextFormatter) Format(w io.Writer, rep *report.Report) error {
	for _, warning := range rep.Warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warning); err != nil {
			return err
		}
	}

	headers := rep.GeneralStatsHeaders()
	if len(headers) > 0 {
		if _, err := fmt.Fprintf(w, "\nGeneral statistics\n"); err != nil {
			return err
		}
		if err := f.writeRows(w, visibleIDs(headers), rep.GeneralStatsRows()); err != nil {
			return err
		}
	}

	for _, t := range rep.Tables {
		if _, err := fmt.Fprintf(w, "\n%s\n", t.Title); err != nil {
			return err
		}
		if err := f.writeRows(w, allIDs(t.Headers), t.Rows); err != nil {
			return err
		}
	}
	return nil
}

// writeRows writes one line per row: sample, optional panel, and each
// selected cell as name=value with its classification.
func (f *TextFormatter) writeRows(w io.Writer, ids []string, rows []*qc.AggregatedRow) error {
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "  %s", row.Sample); err != nil {
			return err
		}
		if row.Panel != "" {
			if _, err := fmt.Fprintf(w, " [%s]", row.Panel); err != nil {
				return err
			}
		}
		for _, id := range ids {
			cell, ok := row.Cells[id]
			if !ok {
				continue
			}
			if _, err := fmt.Fprintf(w, "  %s=%s", id, f.cell(cell)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// cell renders one classified value, colorized when enabled.
func (f *TextFormatter) cell(c qc.Cell) string {
	s := c.Value.String()
	if c.Status != "" {
		s = fmt.Sprintf("%s(%s)", s, c.Status)
	}
	if !f.Color {
		return s
	}
	switch c.Status {
	case qc.Pass:
		return "\033[32m" + s + "\033[0m"
	case qc.Warn:
		return "\033[33m" + s + "\033[0m"
	case qc.Fail:
		return "\033[31m" + s + "\033[0m"
	}
	return s
}

// visibleIDs returns the IDs of columns not hidden by configuration.
func visibleIDs(headers []report.Header) []string {
	ids := make([]string, 0, len(headers))
	for _, h := range headers {
		if h.Hidden {
			continue
		}
		ids = append(ids, h.ID)
	}
	return ids
}

// allIDs returns every column ID. Detailed tables show hidden columns
// too; hiding only affects the compact summary view.
func allIDs(headers []report.Header) []string {
	ids := make([]string, 0, len(headers))
	for _, h := range headers {
		ids = append(ids, h.ID)
	}
	return ids
}
