package output

import (
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/SNUH-BMI/CDM/domain/model"
)

// maxSheetName is the longest sheet name Excel accepts.
const maxSheetName = 31

var sheetNameReplacer = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_",
)

func sheetName(name string) string {
	name = sheetNameReplacer.Replace(name)
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	if name == "" {
		return "Sheet1"
	}
	return name
}

func writeXLSX(path, name string, table *model.Table) (err error) {
	if err := removeExisting(path); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	sheet := sheetName(name)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	header := make([]any, len(table.Header()))
	for i, h := range table.Header() {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	info := table.ColumnInfo()
	for i, record := range table.Records() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, xlsxRow(record, info)); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(path)
}

// xlsxRow converts cells so numeric columns are stored as numbers.
func xlsxRow(record model.Record, info []model.ColumnInfo) []any {
	row := make([]any, len(record))
	for j, v := range record {
		if v.IsNull() {
			continue
		}
		s := strings.TrimSpace(v.String())
		row[j] = v.String()
		if j >= len(info) || s == "" {
			continue
		}
		switch info[j].Type {
		case model.ColumnTypeInteger:
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				row[j] = n
			}
		case model.ColumnTypeReal:
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				row[j] = f
			}
		}
	}
	return row
}
