package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/joshua-takyi/airportcar/internal/models"
)

type ReceiptService struct {
	cms      *CMSService
	settings *SettingsService
}

func NewReceiptService(cms *CMSService, settings *SettingsService) *ReceiptService {
	return &ReceiptService{cms: cms, settings: settings}
}

// WriteReceipt renders a PDF receipt for the booking to w.
func (r *ReceiptService) WriteReceipt(ctx context.Context, b *models.Booking, w io.Writer) error {
	bundle, err := r.cms.GetPageBundle(ctx, "payments")
	if err != nil {
		return err
	}
	settings, err := r.settings.GetSettings(ctx)
	if err != nil {
		return err
	}
	return renderReceipt(w, b, bundle.BusinessInfo, strings.ToUpper(settings.Currency))
}

func renderReceipt(w io.Writer, b *models.Booking, info *models.BusinessInfo, currency string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Booking receipt "+b.ID, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(info.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range []string{info.Address, info.Phone, info.Email} {
		if line != "" {
			pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Booking receipt", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	money := func(v float64) string { return fmt.Sprintf("%s %.2f", currency, v) }
	deposit := money(b.DepositAmount)
	if b.DepositPaid {
		deposit += " (paid)"
	}

	rows := [][2]string{
		{"Reference", b.ID},
		{"Customer", b.CustomerName},
		{"Pickup", b.Pickup},
		{"Dropoff", b.Dropoff},
		{"Pickup time", b.PickupTime.UTC().Format("Mon 02 Jan 2006, 15:04 MST")},
		{"Passengers", fmt.Sprintf("%d", b.Passengers)},
		{"Status", string(b.Status)},
		{"Fare", money(b.Fare)},
		{"Deposit", deposit},
		{"Balance due", money(b.BalanceDue)},
	}
	if b.FlightNumber != "" {
		rows = append(rows[:5], append([][2]string{{"Flight", b.FlightNumber}}, rows[5:]...)...)
	}
	if b.RefundAmount > 0 {
		rows = append(rows, [2]string{"Refund", money(b.RefundAmount)})
	}

	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(45, 8, row[0], "B", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, tr(row[1]), "B", 1, "L", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 5, "Issued "+time.Now().UTC().Format("02 Jan 2006"), "", 1, "L", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render receipt: %w", err)
	}
	return nil
}
