package ledger

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/tealeg/xlsx"

	"banking-ui/models"
)

const timestampLayout = "2006-01-02 15:04:05"

var reportHeader = []string{"ID", "Customer Name", "Card Number", "Type", "Amount", "Status", "Reason", "Timestamp"}

func reportRow(tx models.Transaction) []string {
	name := tx.CustomerName
	if name == "" {
		name = "N/A"
	}
	return []string{
		strconv.FormatInt(tx.ID, 10),
		name,
		GroupCard(tx.CardNumber),
		string(tx.Type),
		tx.Amount.StringFixed(2),
		string(tx.Status),
		tx.Reason,
		tx.Timestamp.Format(timestampLayout),
	}
}

// WritePDF renders the ledger and its summary as a landscape A4 report.
func WritePDF(w io.Writer, txs []models.Transaction) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Transactions Report")
	pdf.Ln(12)

	s := Summarize(txs)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Total: %d   Successful: %d   Failed: %d   Withdrawals: %s   Top-ups: %s",
		s.Total, s.Successful, s.Failed, Money(s.TotalWithdrawals), Money(s.TotalTopups)))
	pdf.Ln(10)

	widths := []float64{15, 40, 45, 22, 25, 22, 60, 40}

	pdf.SetFont("Arial", "B", 10)
	for i, h := range reportHeader {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "", false, 0, "")
	}
	pdf.Ln(7)

	pdf.SetFont("Arial", "", 10)
	for _, tx := range txs {
		for i, v := range reportRow(tx) {
			align := ""
			if i == 4 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, v, "1", 0, align, false, 0, "")
		}
		pdf.Ln(7)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// WriteXLSX writes the ledger as a single-sheet workbook.
func WriteXLSX(w io.Writer, txs []models.Transaction) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Transactions")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	row := sheet.AddRow()
	for _, h := range reportHeader {
		row.AddCell().SetValue(h)
	}
	for _, tx := range txs {
		row = sheet.AddRow()
		for i, v := range reportRow(tx) {
			if i == 4 {
				row.AddCell().SetFloat(tx.Amount.InexactFloat64())
				continue
			}
			row.AddCell().SetValue(v)
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
