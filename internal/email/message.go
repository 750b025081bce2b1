// Package email renders the receipt notifications sent to patients. Delivery
// lives in the ses and noop subpackages.
package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"

	"medibill/internal/domain"
)

// Message is a rendered receipt notification.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

var receiptTitles = map[domain.ReceiptType]string{
	domain.ReceiptTypeCreation:     "Bill created",
	domain.ReceiptTypePayment:      "Payment received",
	domain.ReceiptTypeModification: "Bill updated",
	domain.ReceiptTypeCancellation: "Bill cancelled",
}

var receiptHTML = htmltemplate.Must(htmltemplate.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">{{.Title}}</h2>
  <p>Dear {{.Patient}},</p>
  <table style="border-collapse: collapse; width: 100%;">
    <tr><td>Receipt</td><td>{{.ReceiptNumber}}</td></tr>
    <tr><td>Bill</td><td>{{.BillNumber}}</td></tr>
    <tr><td>Doctor</td><td>{{.Doctor}}</td></tr>
    <tr><td>Amount</td><td>{{.Amount}}</td></tr>
    <tr><td>Grand total</td><td>{{.GrandTotal}}</td></tr>
    <tr><td>Paid to date</td><td>{{.Paid}}</td></tr>
    <tr><td>Balance due</td><td>{{.Due}}</td></tr>
  </table>
  {{if .Remarks}}<p style="color: #666;">{{.Remarks}}</p>{{end}}
  <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="color: #999; font-size: 12px;">This is an automated receipt. Please keep it for your records.</p>
</body>
</html>`))

type receiptView struct {
	Title         string
	Patient       string
	Doctor        string
	ReceiptNumber string
	BillNumber    int64
	Amount        string
	GrandTotal    string
	Paid          string
	Due           string
	Remarks       string
}

// BuildReceiptMessage renders the notification for one receipt on a bill.
func BuildReceiptMessage(bill *domain.Bill, receipt *domain.Receipt) (*Message, error) {
	if bill == nil || receipt == nil {
		return nil, fmt.Errorf("building receipt message: bill and receipt are required")
	}
	title, ok := receiptTitles[receipt.Type]
	if !ok {
		title = "Receipt"
	}
	v := receiptView{
		Title:         title,
		Patient:       bill.Patient.Name,
		Doctor:        bill.Doctor.Name,
		ReceiptNumber: receipt.ReceiptNumber,
		BillNumber:    bill.BillNumber,
		Amount:        receipt.Amount.StringFixed(2),
		GrandTotal:    bill.Totals.GrandTotal.StringFixed(2),
		Paid:          bill.Payment.Paid.StringFixed(2),
		Due:           bill.Totals.DueAmount.StringFixed(2),
		Remarks:       receipt.Remarks,
	}

	var html bytes.Buffer
	if err := receiptHTML.Execute(&html, v); err != nil {
		return nil, fmt.Errorf("rendering receipt html: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Dear %s,\n\n%s.\n\n", v.Patient, v.Title)
	fmt.Fprintf(&text, "Receipt:      %s\n", v.ReceiptNumber)
	fmt.Fprintf(&text, "Bill:         %d\n", v.BillNumber)
	fmt.Fprintf(&text, "Doctor:       %s\n", v.Doctor)
	fmt.Fprintf(&text, "Amount:       %s\n", v.Amount)
	fmt.Fprintf(&text, "Grand total:  %s\n", v.GrandTotal)
	fmt.Fprintf(&text, "Paid to date: %s\n", v.Paid)
	fmt.Fprintf(&text, "Balance due:  %s\n", v.Due)
	if v.Remarks != "" {
		fmt.Fprintf(&text, "\n%s\n", v.Remarks)
	}

	return &Message{
		To:      bill.Patient.Email,
		Subject: fmt.Sprintf("%s: receipt %s", title, receipt.ReceiptNumber),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
