package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-tutor/internal/tutor"
)

// Sheet names of the progress workbook.
const (
	SheetProgress  = "Progress"
	SheetSubtopics = "Subtopics"
)

// WriteProgressXLSX writes an Excel workbook with one row per topic on the
// Progress sheet and one row per subtopic on the Subtopics sheet.
func WriteProgressXLSX(w io.Writer, title string, progress []tutor.TopicProgress) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetProgress); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetSubtopics); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	if err := f.SetCellValue(SheetProgress, "A1", title); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetProgress, "A1", "A1", bold); err != nil {
		return err
	}
	if err := writeRow(f, SheetProgress, 3, []any{"Topic", "Completed", "Total", "Percent"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetProgress, "A3", "D3", bold); err != nil {
		return err
	}

	if err := writeRow(f, SheetSubtopics, 1, []any{"Topic", "Subtopic", "Completed"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSubtopics, "A1", "C1", bold); err != nil {
		return err
	}

	subRow := 2
	for i, tp := range progress {
		if err := writeRow(f, SheetProgress, i+4, []any{tp.Topic, tp.Completed, tp.Total, tp.Percent}); err != nil {
			return err
		}
		for _, sp := range tp.Subtopics {
			done := "no"
			if sp.Completed {
				done = "yes"
			}
			if err := writeRow(f, SheetSubtopics, subRow, []any{tp.Topic, sp.Name, done}); err != nil {
				return err
			}
			subRow++
		}
	}

	if err := f.SetColWidth(SheetProgress, "A", "A", 36); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetSubtopics, "A", "B", 32); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}
