package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/oncoassist/triage/internal/core/domain"
)

func TestWriteSummaryProducesReadableWorkbook(t *testing.T) {
	writer := NewWriter()
	summary := &domain.ResultSummary{
		Total: 7,
		ByCategory: map[domain.Category]int{
			domain.CategoryRadiology: 3,
			domain.CategoryBloodTest: 2,
			domain.CategoryInvoice:   1,
			domain.CategoryMedicine:  1,
		},
		Last7Days:   4,
		GeneratedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	if err := writer.WriteSummary(&buf, summary); err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	header, err := f.GetCellValue(sheetName, "A1")
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if header != "Category" {
		t.Fatalf("expected header Category, got %q", header)
	}

	radiologyCount, err := f.GetCellValue(sheetName, "B2")
	if err != nil {
		t.Fatalf("read count: %v", err)
	}
	if radiologyCount != "3" {
		t.Fatalf("expected radiology count 3, got %q", radiologyCount)
	}
}
