// Package export renders BBA scorecards and strategy workbooks as xlsx files.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/turtacn/advisorhub/internal/domain/models"
	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
)

// Sheet names.
const (
	SheetScorecard       = "Scorecard"
	SheetFindings        = "Findings"
	SheetRecommendations = "Recommendations"
	SheetSummary         = "Summary"
	SheetObjectives      = "Objectives"
	SheetInitiatives     = "Initiatives"
	SheetCapacity        = "Capacity"
)

// Fill colours shared by RAG and status highlighting.
const (
	colourRed   = "#FFC7CE"
	colourAmber = "#FFEB9C"
	colourGreen = "#C6EFCE"
	colourHead  = "#DDEBF7"
)

// validationRows bounds the drop-downs so rows added by hand in Excel are covered too.
const validationRows = 500

var _ service.Exporter = (*ExcelExporter)(nil)

// ExcelExporter implements service.Exporter with excelize.
type ExcelExporter struct {
	warnRatio float64
}

// NewExcelExporter creates an exporter; warnRatio drives the amber capacity band.
func NewExcelExporter(warnRatio float64) *ExcelExporter {
	if warnRatio <= 0 {
		warnRatio = constants.DefaultCapacityWarnRatio
	}
	return &ExcelExporter{warnRatio: warnRatio}
}

// ScorecardXLSX renders the report's scorecard, findings and recommendations.
func (e *ExcelExporter) ScorecardXLSX(report *models.BBAReport) ([]byte, error) {
	if report.Scores == nil {
		return nil, errors.ErrWorkflowViolation("report has not been scored yet")
	}

	b, err := newBook(SheetScorecard)
	if err != nil {
		return nil, err
	}
	defer b.f.Close()

	header := []interface{}{"Module", "Weight", "Score", "RAG", "Rank", "Answered", "Questions"}
	rows := make([][]interface{}, 0, len(report.Scores.Modules)+2)
	for _, m := range report.Scores.Modules {
		rows = append(rows, []interface{}{
			m.Name, m.Weight, scoreCell(m.Score), string(m.RAG), rankCell(m.Rank), m.Answered, m.Questions,
		})
	}
	last := len(rows) + 1
	rows = append(rows,
		[]interface{}{},
		[]interface{}{"Overall", nil, scoreCell(report.Scores.OverallScore), string(report.Scores.OverallRAG)},
	)
	if err := b.table(SheetScorecard, header, rows, []float64{28, 10, 10, 12, 8, 10, 10}); err != nil {
		return nil, err
	}
	if err := b.ragFormat(SheetScorecard, fmt.Sprintf("D2:D%d", last+2)); err != nil {
		return nil, err
	}

	if err := b.sheet(SheetFindings); err != nil {
		return nil, err
	}
	rows = rows[:0]
	for _, f := range report.Findings {
		rows = append(rows, []interface{}{
			f.ModuleName, string(f.RAG), string(f.Kind), f.Title, f.Summary, strings.Join(f.RootCauses, "; "),
		})
	}
	if err := b.table(SheetFindings, []interface{}{"Module", "RAG", "Kind", "Title", "Summary", "Root causes"},
		rows, []float64{24, 10, 12, 36, 60, 48}); err != nil {
		return nil, err
	}
	if err := b.ragFormat(SheetFindings, fmt.Sprintf("B2:B%d", len(rows)+1)); err != nil {
		return nil, err
	}

	if err := b.sheet(SheetRecommendations); err != nil {
		return nil, err
	}
	rows = rows[:0]
	for _, r := range report.Recommendations {
		rows = append(rows, []interface{}{r.ModuleKey, r.Title, string(r.Priority), r.Description, r.Impact})
	}
	if err := b.table(SheetRecommendations, []interface{}{"Module", "Title", "Priority", "Description", "Impact"},
		rows, []float64{16, 36, 10, 60, 36}); err != nil {
		return nil, err
	}
	return b.bytes()
}

// WorkbookXLSX renders the strategy workbook with drop-downs, validations and its capacity analysis.
func (e *ExcelExporter) WorkbookXLSX(wb *models.StrategyWorkbook) ([]byte, error) {
	b, err := newBook(SheetSummary)
	if err != nil {
		return nil, err
	}
	defer b.f.Close()

	if err := e.writeSummary(b, wb); err != nil {
		return nil, err
	}
	if err := e.writeObjectives(b, wb); err != nil {
		return nil, err
	}
	if err := e.writeInitiatives(b, wb); err != nil {
		return nil, err
	}
	if err := e.writeCapacity(b, wb); err != nil {
		return nil, err
	}
	return b.bytes()
}

func (e *ExcelExporter) writeSummary(b *book, wb *models.StrategyWorkbook) error {
	rows := [][]interface{}{
		{"Vision", wb.Vision},
		{"Mission", wb.Mission},
		{"Strengths", strings.Join(wb.SWOT.Strengths, "\n")},
		{"Weaknesses", strings.Join(wb.SWOT.Weaknesses, "\n")},
		{"Opportunities", strings.Join(wb.SWOT.Opportunities, "\n")},
		{"Threats", strings.Join(wb.SWOT.Threats, "\n")},
	}
	for _, w := range wb.Warnings {
		rows = append(rows, []interface{}{"Extraction warning", w})
	}
	return b.table(SheetSummary, []interface{}{"Section", "Content"}, rows, []float64{20, 100})
}

func (e *ExcelExporter) writeObjectives(b *book, wb *models.StrategyWorkbook) error {
	if err := b.sheet(SheetObjectives); err != nil {
		return err
	}
	rows := make([][]interface{}, 0, len(wb.Objectives))
	for _, o := range wb.Objectives {
		rows = append(rows, []interface{}{o.Key, o.Title, o.Metric, o.Target, string(o.RAG)})
	}
	if err := b.table(SheetObjectives, []interface{}{"Key", "Objective", "Metric", "Target", "RAG"},
		rows, []float64{10, 40, 30, 20, 12}); err != nil {
		return err
	}
	return b.ragFormat(SheetObjectives, fmt.Sprintf("E2:E%d", validationRows+1))
}

func (e *ExcelExporter) writeInitiatives(b *book, wb *models.StrategyWorkbook) error {
	if err := b.sheet(SheetInitiatives); err != nil {
		return err
	}
	rows := make([][]interface{}, 0, len(wb.Initiatives))
	for _, in := range wb.Initiatives {
		rows = append(rows, []interface{}{
			in.Key, in.ObjectiveKey, in.Title, in.Owner, string(in.Status), string(in.Priority),
			in.EffortHours, in.Quarter, in.PercentComplete,
		})
	}
	header := []interface{}{"Key", "Objective", "Initiative", "Owner", "Status", "Priority", "Effort Hours", "Quarter", "% Complete"}
	if err := b.table(SheetInitiatives, header, rows, []float64{10, 12, 40, 20, 14, 10, 12, 10, 12}); err != nil {
		return err
	}

	statuses := make([]string, len(constants.InitiativeStatuses))
	for i, s := range constants.InitiativeStatuses {
		statuses[i] = string(s)
	}
	priorities := make([]string, len(constants.Priorities))
	for i, p := range constants.Priorities {
		priorities[i] = string(p)
	}
	lastRow := validationRows + 1
	if err := b.dropList(SheetInitiatives, fmt.Sprintf("E2:E%d", lastRow), statuses); err != nil {
		return err
	}
	if err := b.dropList(SheetInitiatives, fmt.Sprintf("F2:F%d", lastRow), priorities); err != nil {
		return err
	}
	if err := b.numberRange(SheetInitiatives, fmt.Sprintf("G2:G%d", lastRow), excelize.DataValidationTypeDecimal, 0, 100000,
		"Effort must be a non-negative number of hours"); err != nil {
		return err
	}
	if err := b.numberRange(SheetInitiatives, fmt.Sprintf("I2:I%d", lastRow), excelize.DataValidationTypeWhole, 0, 100,
		"Percent complete must be a whole number from 0 to 100"); err != nil {
		return err
	}

	return b.conditional(SheetInitiatives, fmt.Sprintf("E2:E%d", lastRow), []rule{
		{criteria: "==", value: quoted(string(constants.InitiativeBlocked)), fill: colourRed},
		{criteria: "==", value: quoted(string(constants.InitiativeDone)), fill: colourGreen},
	})
}

func (e *ExcelExporter) writeCapacity(b *book, wb *models.StrategyWorkbook) error {
	if err := b.sheet(SheetCapacity); err != nil {
		return err
	}
	report := service.ComputeCapacity(wb.Owners, wb.Initiatives, e.warnRatio)

	rows := make([][]interface{}, 0, len(report.Loads))
	for _, l := range report.Loads {
		var utilisation interface{}
		// Unrounded so the red band agrees with the over_capacity warning; the cell format rounds.
		if l.CapacityHours > 0 {
			utilisation = l.CommittedHours / l.CapacityHours
		}
		rows = append(rows, []interface{}{l.Owner, l.CapacityHours, l.CommittedHours, utilisation})
	}
	if err := b.table(SheetCapacity, []interface{}{"Owner", "Capacity Hours", "Committed Hours", "Utilisation"},
		rows, []float64{24, 16, 16, 14, 40}); err != nil {
		return err
	}
	lastLoad := len(rows) + 1
	if len(rows) > 0 {
		utilRange := fmt.Sprintf("D2:D%d", lastLoad)
		if err := b.f.SetCellStyle(SheetCapacity, "D2", fmt.Sprintf("D%d", lastLoad), b.percent); err != nil {
			return errors.ErrServerError("style capacity sheet").WithCause(err)
		}
		if err := b.conditional(SheetCapacity, utilRange, []rule{
			{criteria: ">", value: "1", fill: colourRed},
			{criteria: ">=", value: fmt.Sprintf("%g", e.warnRatio), fill: colourAmber},
		}); err != nil {
			return err
		}
	}

	start := lastLoad + 2
	warnHeader := []interface{}{"Warning", "Owner", "Committed Hours", "Capacity Hours", "Initiatives"}
	if err := b.row(SheetCapacity, start, warnHeader); err != nil {
		return err
	}
	if err := b.f.SetCellStyle(SheetCapacity, cell(1, start), cell(len(warnHeader), start), b.header); err != nil {
		return errors.ErrServerError("style capacity sheet").WithCause(err)
	}
	for i, w := range report.Warnings {
		if err := b.row(SheetCapacity, start+1+i, []interface{}{
			string(w.Kind), w.Owner, w.CommittedHours, w.CapacityHours, strings.Join(w.Initiatives, ", "),
		}); err != nil {
			return err
		}
	}
	return nil
}

func scoreCell(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func rankCell(rank int) interface{} {
	if rank == 0 {
		return nil
	}
	return rank
}

func quoted(s string) string {
	return `"` + s + `"`
}

//Personal.AI order the ending
