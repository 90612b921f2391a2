package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindVerification      = "verification"
	KindPasswordReset     = "password_reset"
	KindOrderConfirmation = "order_confirmation"
)

const layoutOpen = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">`

const codeBlock = `<div style="background-color: #f4f4f4; padding: 20px; text-align: center; font-size: 32px; font-weight: bold; letter-spacing: 5px; margin: 20px 0;">{{.Code}}</div>`

var verificationTmpl = template.Must(template.New("verification").Parse(layoutOpen + `
<h2>Welcome to SmartShop, {{.Name}}!</h2>
<p>Thank you for registering. Please use the following code to verify your email address:</p>
` + codeBlock + `
<p>This code will expire in {{.Minutes}} minutes.</p>
<p>If you didn't create an account with SmartShop, please ignore this email.</p>
<p>Happy shopping!<br>The SmartShop Team</p>
</div>`))

var resetTmpl = template.Must(template.New("reset").Parse(layoutOpen + `
<h2>Password Reset Request</h2>
<p>Hi {{.Name}},</p>
<p>We received a request to reset your password. Use the following code to reset your password:</p>
` + codeBlock + `
<p>This code will expire in {{.Minutes}} minutes.</p>
<p>If you didn't request a password reset, please ignore this email and your password will remain unchanged.</p>
<p>Best regards,<br>The SmartShop Team</p>
</div>`))

var orderTmpl = template.Must(template.New("order").Parse(layoutOpen + `
<h2>Thank you for your order!</h2>
<p>Hi {{.Name}},</p>
<p>We've received your order and it's being processed. Here are the details:</p>
<div style="background-color: #f9f9f9; padding: 15px; margin: 20px 0; border-radius: 5px;">
<p style="margin: 5px 0;"><strong>Order Number:</strong> {{.OrderNumber}}</p>
<p style="margin: 5px 0;"><strong>Payment Status:</strong> {{.PaymentStatus}}</p>
</div>
<h3>Order Items:</h3>
<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
<thead><tr style="background-color: #f4f4f4;">
<th style="padding: 10px; text-align: left;">Product</th>
<th style="padding: 10px; text-align: center;">Quantity</th>
<th style="padding: 10px; text-align: right;">Price</th>
<th style="padding: 10px; text-align: right;">Subtotal</th>
</tr></thead>
<tbody>{{range .Lines}}
<tr>
<td style="padding: 10px; border-bottom: 1px solid #eee;">{{.Name}}</td>
<td style="padding: 10px; border-bottom: 1px solid #eee; text-align: center;">{{.Quantity}}</td>
<td style="padding: 10px; border-bottom: 1px solid #eee; text-align: right;">${{.Price}}</td>
<td style="padding: 10px; border-bottom: 1px solid #eee; text-align: right;">${{.Subtotal}}</td>
</tr>{{end}}
</tbody>
<tfoot><tr>
<td colspan="3" style="padding: 15px; text-align: right; font-weight: bold;">Total:</td>
<td style="padding: 15px; text-align: right; font-weight: bold; font-size: 18px;">${{.Total}}</td>
</tr></tfoot>
</table>
<p>Thank you for shopping with SmartShop!</p>
<p>Best regards,<br>The SmartShop Team</p>
</div>`))

type codeData struct {
	Name    string
	Code    string
	Minutes int
}

// OrderLine is one row of the confirmation table.
type OrderLine struct {
	Name     string
	Quantity int
	Price    decimal.Decimal
	Subtotal decimal.Decimal
}

// OrderSummary carries what the confirmation email shows.
type OrderSummary struct {
	Name          string
	OrderNumber   string
	PaymentStatus string
	Lines         []OrderLine
	Total         decimal.Decimal
}

type orderLineView struct {
	Name     string
	Quantity int
	Price    string
	Subtotal string
}

func VerificationEmail(to, name, code string, ttl time.Duration) (Email, error) {
	html, err := render(verificationTmpl, codeData{Name: name, Code: code, Minutes: int(ttl.Minutes())})
	if err != nil {
		return Email{}, err
	}
	return Email{Kind: KindVerification, To: to, Subject: "Verify your SmartShop account", HTML: html}, nil
}

func PasswordResetEmail(to, name, code string, ttl time.Duration) (Email, error) {
	html, err := render(resetTmpl, codeData{Name: name, Code: code, Minutes: int(ttl.Minutes())})
	if err != nil {
		return Email{}, err
	}
	return Email{Kind: KindPasswordReset, To: to, Subject: "Reset your SmartShop password", HTML: html}, nil
}

func OrderConfirmationEmail(to string, summary OrderSummary) (Email, error) {
	lines := make([]orderLineView, 0, len(summary.Lines))
	for _, l := range summary.Lines {
		lines = append(lines, orderLineView{
			Name:     l.Name,
			Quantity: l.Quantity,
			Price:    l.Price.StringFixed(2),
			Subtotal: l.Subtotal.StringFixed(2),
		})
	}
	html, err := render(orderTmpl, struct {
		Name          string
		OrderNumber   string
		PaymentStatus string
		Lines         []orderLineView
		Total         string
	}{
		Name:          summary.Name,
		OrderNumber:   summary.OrderNumber,
		PaymentStatus: summary.PaymentStatus,
		Lines:         lines,
		Total:         summary.Total.StringFixed(2),
	})
	if err != nil {
		return Email{}, err
	}
	return Email{
		Kind:    KindOrderConfirmation,
		To:      to,
		Subject: "Order Confirmation - " + summary.OrderNumber,
		HTML:    html,
	}, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}
