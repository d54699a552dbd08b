package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
	"s2t-go/internal/types"
)

const (
	SegmentsSheet = "segments"
	SummarySheet  = "summary"
)

var segmentHeader = []interface{}{"index", "start_ms", "end_ms", "duration_ms", "language", "status", "text", "error"}

// Write saves a per-segment workbook for tr at path.
func Write(path string, tr *types.Transcript) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SegmentsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := setRow(f, SegmentsSheet, 1, segmentHeader); err != nil {
		return err
	}
	for i, s := range tr.Segments {
		status := "ok"
		if s.Skipped {
			status = "skipped"
		}
		row := []interface{}{s.Index, s.StartMs, s.EndMs, s.EndMs - s.StartMs, s.Language, status, s.Text, s.Error}
		if err := setRow(f, SegmentsSheet, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	summary := [][]interface{}{
		{"source", tr.Source},
		{"run_id", tr.RunID},
		{"engine", tr.Engine},
		{"model", tr.Model},
		{"language", tr.Language},
		{"segments", len(tr.Segments)},
		{"skipped", tr.Skipped},
		{"audio_ms", tr.DurationMs},
		{"elapsed_ms", tr.ElapsedMs},
		{"words", len(strings.Fields(tr.Text))},
	}
	for i, row := range summary {
		if err := setRow(f, SummarySheet, i+1, row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
