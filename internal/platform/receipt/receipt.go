// Package receipt renders booking bills as PDF documents by printing an
// HTML template through headless Chrome.
package receipt

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
)

// Bill is the data printed on a booking receipt.
type Bill struct {
	BookingID     string
	PatientName   string
	PatientEmail  string
	TestName      string
	SlotStart     time.Time
	SlotEnd       time.Time
	Amount        decimal.Decimal
	PaymentMethod string
	PaymentStatus string
	BookingStatus string
	IssuedAt      time.Time
}

// Renderer turns a bill into a PDF document. Handlers depend on this
// interface so tests never need a Chrome binary.
type Renderer interface {
	Render(ctx context.Context, bill Bill) ([]byte, error)
}

var billTemplate = template.Must(template.New("bill").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; margin: 48px; color: #222; }
  h1 { font-size: 22px; border-bottom: 2px solid #222; padding-bottom: 8px; }
  table { width: 100%; border-collapse: collapse; margin-top: 24px; }
  td { padding: 8px 4px; border-bottom: 1px solid #ddd; }
  td.label { color: #666; width: 40%; }
  .amount { font-size: 18px; font-weight: bold; }
  .footer { margin-top: 36px; font-size: 11px; color: #888; }
</style>
</head>
<body>
  <h1>Diagnostic Booking Receipt</h1>
  <table>
    <tr><td class="label">Booking reference</td><td>{{.BookingID}}</td></tr>
    <tr><td class="label">Patient</td><td>{{.PatientName}} ({{.PatientEmail}})</td></tr>
    <tr><td class="label">Test</td><td>{{.TestName}}</td></tr>
    <tr><td class="label">Appointment</td><td>{{.SlotStart.Format "02 Jan 2006 15:04"}} &ndash; {{.SlotEnd.Format "15:04"}}</td></tr>
    <tr><td class="label">Amount</td><td class="amount">{{.Amount.StringFixed 2}}</td></tr>
    <tr><td class="label">Payment method</td><td>{{.PaymentMethod}}</td></tr>
    <tr><td class="label">Payment status</td><td>{{.PaymentStatus}}</td></tr>
    <tr><td class="label">Booking status</td><td>{{.BookingStatus}}</td></tr>
  </table>
  <p class="footer">Issued {{.IssuedAt.Format "02 Jan 2006 15:04"}}</p>
</body>
</html>`))

// RenderHTML fills the bill template. Exposed separately so the HTML can be
// tested without Chrome.
func RenderHTML(bill Bill) (string, error) {
	var buf bytes.Buffer
	if err := billTemplate.Execute(&buf, bill); err != nil {
		return "", fmt.Errorf("render bill template: %w", err)
	}
	return buf.String(), nil
}
