package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"

	"harvest-wallet-backend/internal/domain"
	"harvest-wallet-backend/internal/logger"
)

// Wallet amounts are stored in minor currency units.
const minorUnitExponent = 2

type mailSender interface {
	Send(msg *mail.SGMailV3) (status int, body string, err error)
}

type sendgridSender struct {
	apiKey string
}

func (s sendgridSender) Send(msg *mail.SGMailV3) (int, string, error) {
	resp, err := sendgrid.NewSendClient(s.apiKey).Send(msg)
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, resp.Body, nil
}

// EmailNotifier mails reconciliation discrepancies to the operators list.
type EmailNotifier struct {
	sender     mailSender
	fromEmail  string
	fromName   string
	recipients []string
}

func NewEmailNotifier(apiKey, fromEmail, fromName string, recipients []string) *EmailNotifier {
	return &EmailNotifier{
		sender:     sendgridSender{apiKey: apiKey},
		fromEmail:  fromEmail,
		fromName:   fromName,
		recipients: recipients,
	}
}

func (n *EmailNotifier) NotifyDiscrepancies(ctx context.Context, report *domain.ReconciliationReport) error {
	if report == nil || report.Clean() {
		return nil
	}

	subject := fmt.Sprintf("Harvest wallet reconciliation: %d discrepancies", len(report.Discrepancies))
	plain, htmlBody := FormatReport(report)

	from := mail.NewEmail(n.fromName, n.fromEmail)
	for _, to := range n.recipients {
		msg := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), plain, htmlBody)

		logger.ExternalServiceCall("sendgrid", "Send", "to", to)
		status, body, err := n.sender.Send(msg)
		if err == nil && status >= 400 {
			err = fmt.Errorf("sendgrid error: status %d, body: %s", status, body)
		}
		logger.ExternalServiceResult("sendgrid", "Send", err, "to", to)
		if err != nil {
			return fmt.Errorf("failed to send reconciliation alert to %s: %w", to, err)
		}
	}
	return nil
}

// FormatReport renders a report as plain text and HTML with amounts in
// major currency units.
func FormatReport(report *domain.ReconciliationReport) (string, string) {
	var plain, rows strings.Builder
	fmt.Fprintf(&plain, "Checked %d wallets and %d usage records between %s and %s.\n\n",
		report.CheckedWallets, report.CheckedUsage,
		report.StartedAt.UTC().Format("2006-01-02 15:04:05"), report.FinishedAt.UTC().Format("2006-01-02 15:04:05"))

	for _, d := range report.Discrepancies {
		fmt.Fprintf(&plain, "- %s %s: expected %s, actual %s (%s)\n",
			d.WalletID, d.Kind, FormatAmount(d.Expected), FormatAmount(d.Actual), d.Detail)
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			html.EscapeString(d.WalletID), d.Kind, FormatAmount(d.Expected), FormatAmount(d.Actual), html.EscapeString(d.Detail))
	}

	htmlBody := fmt.Sprintf(`<html><body>
<p>Checked %d wallets and %d usage records.</p>
<table border="1" cellpadding="4">
<tr><th>Wallet</th><th>Kind</th><th>Expected</th><th>Actual</th><th>Detail</th></tr>
%s
</table>
</body></html>`, report.CheckedWallets, report.CheckedUsage, rows.String())

	return plain.String(), htmlBody
}

func FormatAmount(minor int64) string {
	return decimal.New(minor, -minorUnitExponent).StringFixed(minorUnitExponent)
}

// LogNotifier is used when no mail provider is configured.
type LogNotifier struct{}

func (LogNotifier) NotifyDiscrepancies(_ context.Context, report *domain.ReconciliationReport) error {
	if report == nil || report.Clean() {
		return nil
	}
	for _, d := range report.Discrepancies {
		logger.Warn("Ledger discrepancy",
			"walletID", d.WalletID,
			"kind", d.Kind,
			"expected", FormatAmount(d.Expected),
			"actual", FormatAmount(d.Actual),
			"detail", d.Detail,
		)
	}
	return nil
}
