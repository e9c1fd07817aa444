// Package reports renders trip history into the styled spreadsheet the
// administration distributes, one trip per row.
package reports

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/camaradigital/frota-api/models"
)

const sheetName = "Relatório"

var headers = []string{
	"DATA/HORA SAÍDA",
	"DATA/HORA CHEGADA",
	"MOTORISTA",
	"VEÍCULO",
	"GABINETE",
	"KM INICIAL",
	"KM FINAL",
	"TOTAL KM",
	"DESTINO/FINALIDADE",
}

// Filename returns the download name for an export generated now.
func Filename(now time.Time) string {
	return fmt.Sprintf("Relatorio_Frota_%s.xlsx", now.Format("02_01_2006"))
}

// BuildTripReport lays out the trips in a styled worksheet with a header
// band, bordered data rows, two signature blocks and an extraction
// timestamp footer.
func BuildTripReport(trips []models.Trip, now time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"003366"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, err
	}
	cellStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, err
	}

	for col, title := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return nil, err
		}
	}
	widths := make([]int, len(headers))
	for col, title := range headers {
		widths[col] = len([]rune(title))
	}

	for i, trip := range trips {
		row := i + 2
		for col, value := range rowValues(trip) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, err
			}
			if n := len([]rune(fmt.Sprint(value))); n > widths[col] {
				widths[col] = n
			}
		}
	}

	lastDataRow := len(trips) + 1
	firstHeader, _ := excelize.CoordinatesToCellName(1, 1)
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(sheetName, firstHeader, lastHeader, headerStyle); err != nil {
		return nil, err
	}
	if len(trips) > 0 {
		firstData, _ := excelize.CoordinatesToCellName(1, 2)
		lastData, _ := excelize.CoordinatesToCellName(len(headers), lastDataRow)
		if err := f.SetCellStyle(sheetName, firstData, lastData, cellStyle); err != nil {
			return nil, err
		}
	}

	for col, width := range widths {
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(sheetName, name, name, float64(width+5)); err != nil {
			return nil, err
		}
	}

	signatureRow := lastDataRow + 4
	if err := addSignatureBlock(f, signatureRow, 1, 3, "Assinatura do Responsável (Transportes)"); err != nil {
		return nil, err
	}
	if err := addSignatureBlock(f, signatureRow, 7, 9, "Visto da Administração"); err != nil {
		return nil, err
	}

	footerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Italic: true, Size: 9, Color: "777777"},
	})
	if err != nil {
		return nil, err
	}
	footerCell, _ := excelize.CoordinatesToCellName(1, signatureRow+2)
	footer := fmt.Sprintf("Relatório extraído em: %s", now.Format("02/01/2006 15:04"))
	if err := f.SetCellValue(sheetName, footerCell, footer); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, footerCell, footerCell, footerStyle); err != nil {
		return nil, err
	}
	return f, nil
}

// rowValues formats one trip. Open trips show "EM TRÂNSITO" for the
// arrival, "---" for the final odometer and zero distance.
func rowValues(trip models.Trip) []interface{} {
	arrival := "EM TRÂNSITO"
	kmFinal := interface{}("---")
	total := 0.0
	if !trip.Details.IsOpen() {
		if trip.Details.ArrivalAt != nil {
			arrival = trip.Details.ArrivalAt.Format("02/01/2006 15:04")
		}
		if trip.Details.ArrivalOdometer != nil {
			kmFinal = *trip.Details.ArrivalOdometer
		}
		if d, ok := trip.Details.Distance(); ok {
			total = d
		}
	}
	destination := trip.Details.Destination
	if trip.Details.Notes != "" {
		destination = fmt.Sprintf("%s / %s", destination, trip.Details.Notes)
	}
	return []interface{}{
		trip.Details.DepartureAt.Format("02/01/2006 15:04"),
		arrival,
		strings.ToUpper(trip.Details.DriverName),
		fmt.Sprintf("%s (%s)", trip.Details.VehicleModel, trip.Details.VehiclePlate),
		trip.Details.Office,
		trip.Details.DepartureOdometer,
		kmFinal,
		total,
		destination,
	}
}

func addSignatureBlock(f *excelize.File, row, fromCol, toCol int, label string) error {
	from, _ := excelize.CoordinatesToCellName(fromCol, row)
	to, _ := excelize.CoordinatesToCellName(toCol, row)
	if err := f.MergeCell(sheetName, from, to); err != nil {
		return err
	}
	if err := f.SetCellValue(sheetName, from, label); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "center"},
		Border:    []excelize.Border{{Type: "top", Color: "000000", Style: 2}},
	})
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheetName, from, to, style)
}

func thinBorders() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}
