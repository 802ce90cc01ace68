// Package export renders orders as documents: a PDF invoice per order and a
// spreadsheet of the order list. No business logic lives here.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"wholesale/internal/domain"
)

const (
	dateLayout  = "2006-01-02 15:04"
	ordersSheet = "Orders"
)

var invoiceColumns = []struct {
	title string
	width float64
	align string
}{
	{"Product", 90, "L"},
	{"Quantity", 25, "R"},
	{"Unit Price", 35, "R"},
	{"Total", 35, "R"},
}

// InvoicePDF writes a one-page invoice for o.
func InvoicePDF(w io.Writer, o domain.Order) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+o.ID.String(), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, "Invoice", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Order: "+o.ID.String(), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Date: "+o.CreatedAt.Format(dateLayout), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Status: "+string(o.Status), "", 1, "L", false, 0, "")
	if o.Address != "" {
		pdf.CellFormat(0, 6, "Ship to: "+o.Address, "", 1, "L", false, 0, "")
	}
	if o.Phone != "" {
		pdf.CellFormat(0, 6, "Phone: "+o.Phone, "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range invoiceColumns {
		pdf.CellFormat(c.width, 8, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 11)
	row := []string{
		o.ProductName,
		fmt.Sprintf("%d", o.Quantity),
		o.UnitPrice().StringFixed(2),
		o.TotalPrice.StringFixed(2),
	}
	for i, c := range invoiceColumns {
		pdf.CellFormat(c.width, 8, row[i], "1", 0, c.align, false, 0, "")
	}
	pdf.Ln(-1)

	var total float64
	for _, c := range invoiceColumns[:3] {
		total += c.width
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(total, 8, "Grand total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(invoiceColumns[3].width, 8, o.TotalPrice.StringFixed(2), "1", 1, "R", false, 0, "")

	if err := pdf.Error(); err != nil {
		return errors.Wrap(err, "render invoice")
	}
	return errors.Wrap(pdf.Output(w), "write invoice")
}

var sheetHeader = []interface{}{
	"Order ID", "Created", "Product", "Quantity", "Unit Price", "Total",
	"Buy Price", "Status", "Address", "Phone", "Delivered",
}

// OrdersXLSX writes one row per order to a single-sheet workbook.
func OrdersXLSX(w io.Writer, orders []domain.Order) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ordersSheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}
	if err := f.SetSheetRow(ordersSheet, "A1", &sheetHeader); err != nil {
		return errors.Wrap(err, "write header")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "header style")
	}
	if err := f.SetCellStyle(ordersSheet, "A1", "K1", bold); err != nil {
		return errors.Wrap(err, "apply header style")
	}
	if err := f.SetColWidth(ordersSheet, "A", "K", 18); err != nil {
		return errors.Wrap(err, "column width")
	}

	for i, o := range orders {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			o.ID.String(),
			o.CreatedAt.Format(dateLayout),
			o.ProductName,
			o.Quantity,
			o.UnitPrice().InexactFloat64(),
			o.TotalPrice.InexactFloat64(),
			o.BuyPriceAtTime.InexactFloat64(),
			string(o.Status),
			o.Address,
			o.Phone,
			formatOptional(o.DeliveryDate),
		}
		if err := f.SetSheetRow(ordersSheet, cell, &row); err != nil {
			return errors.Wrapf(err, "write order %s", o.ID)
		}
	}
	_, err = f.WriteTo(w)
	return errors.Wrap(err, "write workbook")
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
