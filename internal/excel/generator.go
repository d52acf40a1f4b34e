package excel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/rental-contracts/internal/model"
)

const summarySheet = "Podsumowanie"

// Generator renders the numbering pool register of one year as a workbook:
// a summary sheet plus one sheet per pool.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(register model.PoolRegister) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if err := g.writeSummary(file, register); err != nil {
		return nil, err
	}

	duplicateStyle, err := file.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F8CBAD"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	for _, pool := range register.Pools {
		sheet := PoolSheetName(pool)
		if _, err := file.NewSheet(sheet); err != nil {
			return nil, err
		}
		if err := g.writePool(file, sheet, pool, duplicateStyle); err != nil {
			return nil, err
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, register model.PoolRegister) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(summarySheet, cell, value)
	}

	set("A1", "Rok")
	set("B1", register.Year)

	tableRow := 3
	headers := []string{"Pula", "Liczba umów", "Najwyższy numer", "Następny numer", "Zdublowane numery"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, pool := range register.Pools {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), pool.Prefix)
		set(fmt.Sprintf("B%d", row), len(pool.Entries))
		set(fmt.Sprintf("C%d", row), pool.Max)
		set(fmt.Sprintf("D%d", row), pool.NextSequence())
		set(fmt.Sprintf("E%d", row), joinInts(pool.Duplicates))
	}

	_ = file.SetColWidth(summarySheet, "A", "A", 10)
	_ = file.SetColWidth(summarySheet, "B", "D", 18)
	_ = file.SetColWidth(summarySheet, "E", "E", 30)
	return nil
}

func (g *Generator) writePool(file *excelize.File, sheet string, pool model.Pool, duplicateStyle int) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Pula")
	set("B1", pool.Prefix)
	set("A2", "Rok")
	set("B2", pool.Year)
	set("A3", "Następny numer")
	set("B3", pool.NextSequence())

	tableRow := 5
	headers := []string{"Numer umowy", "Kolejny numer", "Format", "Najemca", "Data rozpoczęcia", "Wartość", "Status"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	duplicates := make(map[int]struct{}, len(pool.Duplicates))
	for _, seq := range pool.Duplicates {
		duplicates[seq] = struct{}{}
	}

	for i, entry := range pool.Entries {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), entry.ContractNumber)
		set(fmt.Sprintf("B%d", row), entry.Sequence)
		set(fmt.Sprintf("C%d", row), layoutLabel(entry.Layout))
		set(fmt.Sprintf("D%d", row), entry.TenantName)
		set(fmt.Sprintf("E%d", row), formatDate(entry.StartDate))
		set(fmt.Sprintf("F%d", row), entry.Value.InexactFloat64())
		set(fmt.Sprintf("G%d", row), string(entry.Status))

		if _, dup := duplicates[entry.Sequence]; dup {
			if err := file.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("G%d", row), duplicateStyle); err != nil {
				return err
			}
		}
	}

	_ = file.SetColWidth(sheet, "A", "A", 18)
	_ = file.SetColWidth(sheet, "B", "C", 14)
	_ = file.SetColWidth(sheet, "D", "D", 36)
	_ = file.SetColWidth(sheet, "E", "G", 16)
	return nil
}

// PoolSheetName is unique per pool because prefixes are.
func PoolSheetName(pool model.Pool) string {
	return sanitizeSheetName(fmt.Sprintf("Pula %s %d", pool.Prefix, pool.Year))
}

func sanitizeSheetName(value string) string {
	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
	)
	value = strings.TrimSpace(replacer.Replace(value))
	if value == "" {
		return "Arkusz"
	}
	if len(value) > 31 {
		value = value[:31]
	}
	return value
}

func layoutLabel(layout model.NumberLayout) string {
	if layout == model.NumberLayoutLegacy {
		return "historyczny"
	}
	return "kanoniczny"
}

func formatDate(d *model.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ", ")
}
