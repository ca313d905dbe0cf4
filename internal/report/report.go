// Package report renders normalized sleep records for humans: a CSV
// export, a stdout table, and an optional markdown narrative file.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/paulgarghe23/zepp-sleep-llm-analysis/internal/domain"
)

// columns is the fixed export order. Downstream spreadsheets and the AI
// prompt rely on these names; do not reorder.
var columns = []string{
	"date", "deepSleepTime", "shallowSleepTime", "wakeTime",
	"start", "stop", "REMTime", "naps",
}

func recordRow(r domain.SleepRecord) []string {
	return []string{
		r.Date,
		strconv.Itoa(r.DeepSleepMinutes),
		strconv.Itoa(r.ShallowSleepMinutes),
		strconv.Itoa(r.WakeMinutes),
		r.SleepStart,
		r.SleepStop,
		strconv.Itoa(r.REMMinutes),
		strconv.Itoa(r.NapMinutes),
	}
}

// WriteCSV writes records to path in the fixed column order, header
// included. An empty record set still produces a file with the header.
func WriteCSV(path string, records []domain.SleepRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("report: write header: %w", err)
	}
	for _, r := range records {
		if err := w.Write(recordRow(r)); err != nil {
			return fmt.Errorf("report: write row %s: %w", r.Date, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("report: flush %s: %w", path, err)
	}
	return f.Close()
}

// RenderTable prints the records as a plain left-aligned table.
func RenderTable(w io.Writer, records []domain.SleepRecord) {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
	)
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, recordRow(r))
	}
	table.Header(columns)
	_ = table.Bulk(rows)
	_ = table.Render()
}

// WriteMarkdown writes the AI narrative to path under a titled heading.
// Callers only invoke this when a narrative exists.
func WriteMarkdown(path, windowLabel, narrative string) error {
	content := fmt.Sprintf("# Zepp sleep report (%s)\n\n%s\n", windowLabel, narrative)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	return nil
}
