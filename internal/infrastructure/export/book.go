package export

import (
	"github.com/xuri/excelize/v2"

	"github.com/turtacn/advisorhub/pkg/errors"
)

// book wraps an excelize file with the shared styles.
type book struct {
	f       *excelize.File
	header  int
	percent int
}

type rule struct {
	criteria string
	value    string
	fill     string
}

func newBook(firstSheet string) (*book, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", firstSheet); err != nil {
		f.Close()
		return nil, errors.ErrServerError("create workbook").WithCause(err)
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{colourHead}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, errors.ErrServerError("create header style").WithCause(err)
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: 10})
	if err != nil {
		f.Close()
		return nil, errors.ErrServerError("create percent style").WithCause(err)
	}
	return &book{f: f, header: header, percent: percent}, nil
}

func (b *book) sheet(name string) error {
	if _, err := b.f.NewSheet(name); err != nil {
		return errors.ErrServerError("create sheet " + name).WithCause(err)
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func colName(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}

func (b *book) row(sheet string, row int, values []interface{}) error {
	if len(values) == 0 {
		return nil
	}
	if err := b.f.SetSheetRow(sheet, cell(1, row), &values); err != nil {
		return errors.ErrServerError("write row").WithCause(err)
	}
	return nil
}

// table writes a bold, frozen header row followed by rows and sets column widths.
func (b *book) table(sheet string, header []interface{}, rows [][]interface{}, widths []float64) error {
	if err := b.row(sheet, 1, header); err != nil {
		return err
	}
	if err := b.f.SetCellStyle(sheet, "A1", cell(len(header), 1), b.header); err != nil {
		return errors.ErrServerError("style header").WithCause(err)
	}
	if err := b.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return errors.ErrServerError("freeze header").WithCause(err)
	}
	for i, r := range rows {
		if err := b.row(sheet, i+2, r); err != nil {
			return err
		}
	}
	for i, w := range widths {
		col := colName(i + 1)
		if err := b.f.SetColWidth(sheet, col, col, w); err != nil {
			return errors.ErrServerError("set column width").WithCause(err)
		}
	}
	return nil
}

func (b *book) dropList(sheet, sqref string, options []string) error {
	dv := excelize.NewDataValidation(true)
	dv.Sqref = sqref
	if err := dv.SetDropList(options); err != nil {
		return errors.ErrServerError("build drop-down").WithCause(err)
	}
	if err := b.f.AddDataValidation(sheet, dv); err != nil {
		return errors.ErrServerError("add drop-down").WithCause(err)
	}
	return nil
}

func (b *book) numberRange(sheet, sqref string, t excelize.DataValidationType, min, max float64, msg string) error {
	dv := excelize.NewDataValidation(true)
	dv.Sqref = sqref
	if err := dv.SetRange(min, max, t, excelize.DataValidationOperatorBetween); err != nil {
		return errors.ErrServerError("build range validation").WithCause(err)
	}
	dv.SetError(excelize.DataValidationErrorStyleStop, "Invalid value", msg)
	if err := b.f.AddDataValidation(sheet, dv); err != nil {
		return errors.ErrServerError("add range validation").WithCause(err)
	}
	return nil
}

// conditional applies cell rules in order; the first match wins.
func (b *book) conditional(sheet, sqref string, rules []rule) error {
	opts := make([]excelize.ConditionalFormatOptions, 0, len(rules))
	for _, r := range rules {
		style, err := b.f.NewConditionalStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{r.fill}, Pattern: 1},
		})
		if err != nil {
			return errors.ErrServerError("create conditional style").WithCause(err)
		}
		opts = append(opts, excelize.ConditionalFormatOptions{
			Type:       "cell",
			Criteria:   r.criteria,
			Format:     &style,
			Value:      r.value,
			StopIfTrue: true,
		})
	}
	if err := b.f.SetConditionalFormat(sheet, sqref, opts); err != nil {
		return errors.ErrServerError("set conditional format").WithCause(err)
	}
	return nil
}

// ragFormat colours red, amber and green cells in sqref.
func (b *book) ragFormat(sheet, sqref string) error {
	return b.conditional(sheet, sqref, []rule{
		{criteria: "==", value: `"red"`, fill: colourRed},
		{criteria: "==", value: `"amber"`, fill: colourAmber},
		{criteria: "==", value: `"green"`, fill: colourGreen},
	})
}

func (b *book) bytes() ([]byte, error) {
	b.f.SetActiveSheet(0)
	buf, err := b.f.WriteToBuffer()
	if err != nil {
		return nil, errors.ErrServerError("write workbook").WithCause(err)
	}
	return buf.Bytes(), nil
}
