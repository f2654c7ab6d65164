package render

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"ai-doc-generator/internal/domain/model"
	"ai-doc-generator/internal/domain/ports/adapter"
)

var _ adapter.ResultExporter = XLSXExporter{}

const sheetName = "Documentation"

// XLSXExporter writes a finished job's descriptions as a spreadsheet.
type XLSXExporter struct{}

func (XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXExporter) Export(w io.Writer, job *model.GenerationJob) error {
	if job == nil || job.Result == nil {
		return fmt.Errorf("generation has no result")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	headers := []string{"File", "Line", "Type", "Name", "Description", "Failed"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	for n, d := range job.Result.Descriptions {
		row := n + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		write(1, d.File)
		write(2, d.Line)
		write(3, string(d.Kind))
		write(4, d.Name)
		write(5, d.Text)
		write(6, d.Failed)
	}

	if len(job.Result.Warnings) > 0 {
		const warnSheet = "Warnings"
		if _, err := f.NewSheet(warnSheet); err != nil {
			return err
		}
		for i, msg := range job.Result.Warnings {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			_ = f.SetCellValue(warnSheet, cell, msg)
		}
		_ = f.SetColWidth(warnSheet, "A", "A", 80)
	}

	_ = f.SetColWidth(sheetName, "A", "A", 28) // file
	_ = f.SetColWidth(sheetName, "B", "B", 8)  // line
	_ = f.SetColWidth(sheetName, "C", "C", 18) // type
	_ = f.SetColWidth(sheetName, "D", "D", 24) // name
	_ = f.SetColWidth(sheetName, "E", "E", 80) // description

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
