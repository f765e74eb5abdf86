package xlsx

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/oncoassist/triage/internal/core/domain"
)

const sheetName = "Summary"

// Writer renders a classification summary as a downloadable workbook.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) WriteSummary(out io.Writer, summary *domain.ResultSummary) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	rows := [][]any{
		{"Category", "Count"},
	}
	for _, category := range domain.Categories {
		rows = append(rows, []any{string(category), summary.ByCategory[category]})
	}
	rows = append(rows,
		[]any{},
		[]any{"Total", summary.Total},
		[]any{"Last 7 days", summary.Last7Days},
		[]any{"Generated at", summary.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	)

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("row coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}

	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
