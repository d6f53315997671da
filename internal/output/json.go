package output

import (
	"encoding/json"
	"io"

	"github.com/cmgg/labqc/internal/qc"
	"github.com/cmgg/labqc/internal/report"
)

// JSONFormatter serializes the full report payload as pretty-printed
// JSON: the machine-readable handoff to the host renderer.
type JSONFormatter struct{}

type jsonCell struct {
	Value  any    `json:"value"`
	Status string `json:"status,omitempty"`
}

type jsonRow struct {
	Sample string              `json:"sample"`
	Panel  string              `json:"panel,omitempty"`
	Cells  map[string]jsonCell `json:"cells"`
	Order  []string            `json:"order"`
}

type jsonTable struct {
	ID       string          `json:"id"`
	Title    string          `json:"title"`
	Info     string          `json:"info,omitempty"`
	Headers  []report.Header `json:"headers"`
	Rows     []jsonRow       `json:"rows"`
	NoViolin bool            `json:"no_violin,omitempty"`
	SortRows bool            `json:"sort_rows,omitempty"`
}

type jsonReport struct {
	GeneralStatsHeaders  []report.Header  `json:"general_stats_headers"`
	GeneralStats         []jsonRow        `json:"general_stats"`
	GeneralStatsNoViolin bool             `json:"general_stats_no_violin,omitempty"`
	Tables               []jsonTable      `json:"tables"`
	Plots                []*report.Plot   `json:"plots,omitempty"`
	ShowHide             *report.ShowHide `json:"show_hide,omitempty"`
	Warnings             []string         `json:"warnings,omitempty"`
}

// Format writes the report as a pretty-printed JSON document.
func (f *JSONFormatter) Format(w io.Writer, rep *report.Report) error {
	payload := jsonReport{
		GeneralStatsHeaders:  rep.GeneralStatsHeaders(),
		GeneralStats:         convertRows(rep.GeneralStatsRows()),
		GeneralStatsNoViolin: rep.GeneralStatsNoViolin,
		Tables:               make([]jsonTable, 0, len(rep.Tables)),
		Plots:                rep.Plots,
		ShowHide:             rep.ShowHide,
		Warnings:             rep.Warnings,
	}
	for _, t := range rep.Tables {
		payload.Tables = append(payload.Tables, jsonTable{
			ID:       t.ID,
			Title:    t.Title,
			Info:     t.Info,
			Headers:  t.Headers,
			Rows:     convertRows(t.Rows),
			NoViolin: t.NoViolin,
			SortRows: t.SortRows,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

// convertRows flattens aggregated rows into their JSON shape.
func convertRows(rows []*qc.AggregatedRow) []jsonRow {
	out := make([]jsonRow, 0, len(rows))
	for _, row := range rows {
		cells := make(map[string]jsonCell, len(row.Cells))
		for name, c := range row.Cells {
			var value any
			if c.Value.Numeric {
				value = c.Value.Num
			} else {
				value = c.Value.Str
			}
			cells[name] = jsonCell{Value: value, Status: string(c.Status)}
		}
		out = append(out, jsonRow{
			Sample: string(row.Sample),
			Panel:  row.Panel,
			Cells:  cells,
			Order:  row.Order,
		})
	}
	return out
}
