// Package export renders receipts as PDF documents.
package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/quickinvoice/quickinvoice/internal/ledger"
	"github.com/quickinvoice/quickinvoice/internal/money"
)

// Issuer describes the business printing the receipt.
type Issuer struct {
	Name          string
	Email         string
	Currency      string
	BankName      string
	AccountName   string
	AccountNumber string
}

// ReceiptPDF writes a one-page receipt for a paid invoice to w.
func ReceiptPDF(w io.Writer, inv ledger.Invoice, issuer Issuer, loc *time.Location) error {
	if !ledger.IsReceipt(inv) {
		return fmt.Errorf("export: invoice %s is %s, not paid", inv.ID, inv.Status)
	}
	if loc == nil {
		loc = time.UTC
	}
	cur, err := money.Parse(issuer.Currency)
	if err != nil {
		cur = money.MustParse(money.Default)
	}
	amount := cur.FormatCode

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Receipt "+inv.ID, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, tr(issuer.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if issuer.Email != "" {
		pdf.CellFormat(0, 5, tr(issuer.Email), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, "RECEIPT", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, "Receipt no: "+inv.ID, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Date: "+inv.CreatedAt.In(loc).Format("02 Jan 2006"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 5, "Received from", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, line := range []string{inv.ClientName, inv.ClientEmail, inv.ClientPhone} {
		if line != "" {
			pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(6)

	widths := []float64{90, 25, 35, 40}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	for i, head := range []string{"Description", "Qty", "Unit price", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, head, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, item := range inv.Items {
		pdf.CellFormat(widths[0], 7, tr(item.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, strconv.FormatFloat(item.Quantity, 'f', -1, 64), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, amount(item.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, amount(item.Total), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	label := widths[0] + widths[1] + widths[2]
	totals := []struct {
		name  string
		value string
	}{
		{"Subtotal", amount(inv.Subtotal)},
		{"Tax", amount(inv.Tax)},
		{"Discount", "-" + amount(inv.Discount)},
	}
	for _, row := range totals {
		pdf.CellFormat(label, 6, row.name, "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, row.value, "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(label, 8, "Total paid", "T", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 8, amount(inv.Total), "T", 1, "R", false, 0, "")

	if issuer.BankName != "" || issuer.AccountNumber != "" {
		pdf.Ln(8)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 5, "Settlement account", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 5, tr(issuer.BankName), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, tr(issuer.AccountName), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, issuer.AccountNumber, "", 1, "L", false, 0, "")
	}
	if inv.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, tr(inv.Notes), "", "L", false)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("export: render receipt: %w", err)
	}
	return pdf.Output(w)
}
