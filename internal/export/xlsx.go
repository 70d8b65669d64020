package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Mo-Mans0ur/M2Matik-sub000/internal/estimate"
)

const sheetName = "Estimat"

var columns = []string{"A", "B", "C", "D", "E"}

// WriteXLSX writes res as a single-sheet workbook. Amounts are stored as
// numbers with a kroner format so the sheet can be summed.
func WriteXLSX(w io.Writer, res estimate.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("set sheet name: %w", err)
	}

	widths := []float64{22, 16, 16, 16, 40}
	for i, col := range columns {
		if err := f.SetColWidth(sheetName, col, col, widths[i]); err != nil {
			return fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	lastCol := columns[len(columns)-1]
	if err := f.MergeCell(sheetName, "A1", lastCol+"1"); err != nil {
		return fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(sheetName, "A1", "Prisoverslag: "+string(res.ProjectType))
	f.SetCellStyle(sheetName, "A1", lastCol+"1", styles.title)
	f.SetCellValue(sheetName, "A2", "Beregnet "+res.ComputedAt.Format("02-01-2006 15:04"))

	headers := []string{"Kategori", "Grundpris", "Tilvalg", "I alt", "Valgte tilvalg"}
	for i, h := range headers {
		f.SetCellValue(sheetName, columns[i]+"4", h)
	}
	f.SetCellStyle(sheetName, "A4", lastCol+"4", styles.header)

	row := 5
	for _, l := range res.Lines {
		r := fmt.Sprintf("%d", row)
		f.SetCellValue(sheetName, "A"+r, sanitizeCell(l.Category))
		f.SetCellValue(sheetName, "B"+r, l.Base)
		f.SetCellValue(sheetName, "C"+r, l.Extras)
		f.SetCellValue(sheetName, "D"+r, l.Total)
		f.SetCellValue(sheetName, "E"+r, sanitizeCell(strings.Join(l.Matched, ", ")))
		f.SetCellStyle(sheetName, "A"+r, "A"+r, styles.text)
		f.SetCellStyle(sheetName, "B"+r, "D"+r, styles.money)
		f.SetCellStyle(sheetName, "E"+r, "E"+r, styles.text)
		row++
	}

	row++
	postnrLabel := "Efter postnummer (" + Factor(res.PostnrFactor) + ")"
	if res.PostnrNote != "" {
		postnrLabel = "Efter postnummer, " + res.PostnrNote + " (" + Factor(res.PostnrFactor) + ")"
	}
	summary := []struct {
		label string
		value int64
	}{
		{"Subtotal", res.Subtotal},
		{"Efter tillæg", res.AfterGlobal},
		{postnrLabel, res.AfterPostnr},
		{"Samlet estimat (fremskrevet " + Factor(roundFactor(res.EscalationFactor)) + ")", res.Total},
	}
	for _, s := range summary {
		r := fmt.Sprintf("%d", row)
		f.SetCellValue(sheetName, "C"+r, sanitizeCell(s.label))
		f.SetCellStyle(sheetName, "C"+r, "C"+r, styles.summaryLabel)
		f.SetCellValue(sheetName, "D"+r, s.value)
		f.SetCellStyle(sheetName, "D"+r, "D"+r, styles.summaryValue)
		row++
	}

	if len(res.Notices) > 0 {
		row++
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), "Bemærkninger")
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), styles.summaryLabel)
		row++
		for _, n := range res.Notices {
			f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), sanitizeCell(n.Key))
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), sanitizeCell(n.Message))
			row++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write excel: %w", err)
	}
	return nil
}

type sheetStyles struct {
	title        int
	header       int
	text         int
	money        int
	summaryLabel int
	summaryValue int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	var s sheetStyles
	var err error
	moneyFmt := `#,##0 "kr."`

	if s.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16},
	}); err != nil {
		return s, fmt.Errorf("create title style: %w", err)
	}
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	}); err != nil {
		return s, fmt.Errorf("create header style: %w", err)
	}
	if s.text, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorders(),
	}); err != nil {
		return s, fmt.Errorf("create text style: %w", err)
	}
	if s.money, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 10},
		Border:       thinBorders(),
		CustomNumFmt: &moneyFmt,
	}); err != nil {
		return s, fmt.Errorf("create money style: %w", err)
	}
	if s.summaryLabel, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	}); err != nil {
		return s, fmt.Errorf("create summary label style: %w", err)
	}
	if s.summaryValue, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true, Size: 11},
		CustomNumFmt: &moneyFmt,
	}); err != nil {
		return s, fmt.Errorf("create summary value style: %w", err)
	}
	return s, nil
}

func roundFactor(f float64) float64 {
	return float64(int64(f*10000+0.5)) / 10000
}

// sanitizeCell prefixes text that a spreadsheet would read as a formula.
func sanitizeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}
