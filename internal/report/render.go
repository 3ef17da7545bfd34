package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/garnizeh/taxi/pkg/models"
)

var columnWidths = []float64{25, 35, 20, 20, 18, 18, 15, 12, 10, 25, 25}

var rowHeights = map[RowKind]float64{
	RowHeader:       25,
	RowRequester:    25,
	RowCar:          30,
	RowColumnHeader: 20,
	RowData:         20,
}

const (
	borderThin   = 1
	borderMedium = 2
	patternSolid = 1
)

func borders(style int) []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: style},
		{Type: "top", Color: "000000", Style: style},
		{Type: "right", Color: "000000", Style: style},
		{Type: "bottom", Color: "000000", Style: style},
	}
}

func solid(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Pattern: patternSolid, Color: []string{color}}
}

var rowStyles = map[RowKind]*excelize.Style{
	RowHeader: {
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      solid("366092"),
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    borders(borderThin),
	},
	RowRequester: {
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "000000"},
		Fill:      solid("E8F4FD"),
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
		Border:    borders(borderThin),
	},
	RowCar: {
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      solid("D9534F"),
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    borders(borderMedium),
	},
	RowColumnHeader: {
		Font:      &excelize.Font{Bold: true, Size: 10, Color: "FFFFFF"},
		Fill:      solid("6C757D"),
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    borders(borderThin),
	},
	RowData: {
		Font:      &excelize.Font{Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
		Border:    borders(borderThin),
	},
	RowGeneratedAt: {
		Font:      &excelize.Font{Italic: true, Size: 10},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	},
	RowTotal: {
		Font:      &excelize.Font{Bold: true, Size: 10},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	},
}

// Bytes renders the report as an in-memory xlsx workbook.
func (b *Builder) Bytes(reqs []models.Request) ([]byte, error) {
	f, err := render(b.Layout(reqs))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write report buffer: %w", err)
	}
	b.logger.Debug("report rendered", "requests", len(reqs), "bytes", buf.Len())
	return buf.Bytes(), nil
}

// WriteFile renders the report into the builder's directory and returns the
// path of the saved file. Only the base of name is used.
func (b *Builder) WriteFile(reqs []models.Request, name string) (string, error) {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	f, err := render(b.Layout(reqs))
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(b.dir, filepath.Base(name))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report %s: %w", path, err)
	}
	b.logger.Info("report saved", "path", path, "requests", len(reqs))
	return path, nil
}

// render writes rows into a new workbook. Row i of rows lands on sheet row i+1.
func render(rows []Row) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	if err := renderInto(f, rows); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func renderInto(f *excelize.File, rows []Row) error {
	lastCol, err := excelize.ColumnNumberToName(len(Columns))
	if err != nil {
		return err
	}

	for i, w := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return fmt.Errorf("set width of %s: %w", col, err)
		}
	}

	styles := make(map[RowKind]int, len(rowStyles))
	for kind, s := range rowStyles {
		id, err := f.NewStyle(s)
		if err != nil {
			return fmt.Errorf("create %s style: %w", kind, err)
		}
		styles[kind] = id
	}

	for i, row := range rows {
		n := i + 1
		first := fmt.Sprintf("A%d", n)
		last := fmt.Sprintf("%s%d", lastCol, n)

		if row.Kind == RowBlank {
			continue
		}

		cells := row.Cells
		if err := f.SetSheetRow(SheetName, first, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", n, err)
		}
		if row.Merged() {
			if err := f.MergeCell(SheetName, first, last); err != nil {
				return fmt.Errorf("merge row %d: %w", n, err)
			}
		}
		if id, ok := styles[row.Kind]; ok {
			if err := f.SetCellStyle(SheetName, first, last, id); err != nil {
				return fmt.Errorf("style row %d: %w", n, err)
			}
		}
		if h, ok := rowHeights[row.Kind]; ok {
			if err := f.SetRowHeight(SheetName, n, h); err != nil {
				return fmt.Errorf("size row %d: %w", n, err)
			}
		}
	}
	return nil
}
