package store

import (
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/copyleftdev/SWEEPR/internal/sweep"
)

// WriteXLSX exports the flat table as a single-sheet workbook. NaN cells
// become the string "NaN" since spreadsheets have no NaN numeric value.
func WriteXLSX(path string, header []string, rows [][]float64) error {
	const op = "WriteXLSX"
	const sheet = "Results"

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheet)
	if err != nil {
		return sweep.WrapError(err, "cannot create sheet").WithComponent("store").WithOperation(op)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return sweep.WrapError(err, "cannot drop default sheet").WithComponent("store").WithOperation(op)
	}

	for j, name := range header {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return sweep.WrapError(err, "bad header coordinate").WithComponent("store").WithOperation(op)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return sweep.WrapError(err, "cannot write header cell").WithComponent("store").WithOperation(op)
		}
	}

	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return sweep.WrapError(err, "bad cell coordinate").WithComponent("store").WithOperation(op)
			}
			var cellValue interface{} = v
			if math.IsNaN(v) {
				cellValue = "NaN"
			}
			if err := f.SetCellValue(sheet, cell, cellValue); err != nil {
				return sweep.WrapError(err, "cannot write cell").WithComponent("store").WithOperation(op)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return sweep.WrapError(err, "cannot save workbook").WithComponent("store").WithOperation(op)
	}
	return nil
}
