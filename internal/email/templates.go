package email

import (
	"bytes"
	"fmt"
	"html/template"
)

// OrderSummary is what the templates show about an order
type OrderSummary struct {
	Reference      string
	CustomerName   string
	Total          string
	Currency       string
	ItemCount      int
	TrackingNumber string
	Reason         string
}

// ShortRef returns the first 8 characters of the reference
func (o OrderSummary) ShortRef() string {
	if len(o.Reference) > 8 {
		return o.Reference[:8]
	}
	return o.Reference
}

const layoutHead = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
<div style="background: #667eea; padding: 24px; border-radius: 10px 10px 0 0;">
	<h1 style="color: white; margin: 0; font-size: 22px;">{{.Heading}}</h1>
</div>
<div style="background: #fff; padding: 24px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
	<p style="margin-top: 0;">Hi {{with .Order.CustomerName}}{{.}}{{else}}there{{end}},</p>
`

const layoutFoot = `
	<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
		<p style="margin: 0; font-size: 14px; color: #666;">Order reference</p>
		<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">{{.Order.Reference}}</p>
	</div>
	<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
	<p style="font-size: 12px; color: #999; margin-bottom: 0;">This message was sent automatically. Please do not reply.</p>
</div>
</body>
</html>`

var (
	confirmationTemplate = mustParse("confirmation", "Thanks for your order", `
	<p>Your payment was received and your order is being prepared for printing.</p>
	<p>{{.Order.ItemCount}} item(s), total <strong>{{.Order.Total}} {{.Order.Currency}}</strong>.</p>`)

	shippedTemplate = mustParse("shipped", "Your order is on its way", `
	<p>Your order has left the print facility.</p>
	{{with .Order.TrackingNumber}}<p>Tracking number: <strong style="font-family: monospace;">{{.}}</strong></p>{{end}}`)

	cancelledTemplate = mustParse("cancelled", "Your order was cancelled", `
	<p>Your order has been cancelled.{{with .Order.Reason}} Reason: {{.}}.{{end}}</p>
	<p>If you were charged, the payment of {{.Order.Total}} {{.Order.Currency}} will be refunded.</p>`)
)

type page struct {
	Heading string
	Order   OrderSummary
}

type view struct {
	heading string
	tmpl    *template.Template
}

func mustParse(name, heading, content string) view {
	return view{
		heading: heading,
		tmpl:    template.Must(template.New(name).Parse(layoutHead + content + layoutFoot)),
	}
}

func render(v view, o OrderSummary) (string, error) {
	var buf bytes.Buffer
	if err := v.tmpl.Execute(&buf, page{Heading: v.heading, Order: o}); err != nil {
		return "", fmt.Errorf("render %s: %w", v.tmpl.Name(), err)
	}
	return buf.String(), nil
}
