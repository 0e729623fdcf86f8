package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
)

const logoContentID = "company-logo"

var bodyTemplate = template.Must(template.New("body").Parse(`<!DOCTYPE html>
<html lang="{{.T.Lang}}">
<body style="font-family:Arial,Helvetica,sans-serif;color:#222;">
{{- if .HasLogo}}
<p><img src="cid:{{.LogoCID}}" alt="logo" height="48"></p>
{{- end}}
<p>{{.T.Greeting}} {{.Name}},</p>
{{- if .Paid}}
<p>{{.T.PaidIntro}}</p>
<table cellpadding="4">
<tr><td>{{.T.LabelOrder}}</td><td>{{.OrderID}}</td></tr>
<tr><td>{{.T.LabelService}}</td><td>{{.Service}}</td></tr>
{{- if .Amount}}
<tr><td>{{.T.LabelAmount}}</td><td>{{.Amount}}</td></tr>
{{- end}}
{{- if .Method}}
<tr><td>{{.T.LabelMethod}}</td><td>{{.Method}}</td></tr>
{{- end}}
{{- if .PaidAt}}
<tr><td>{{.T.LabelPaidAt}}</td><td>{{.PaidAt}}</td></tr>
{{- end}}
</table>
<p>{{.T.PaidNextSteps}}</p>
{{- else}}
<p>{{.T.ExpiredIntro}}</p>
<table cellpadding="4">
<tr><td>{{.T.LabelOrder}}</td><td>{{.OrderID}}</td></tr>
<tr><td>{{.T.LabelService}}</td><td>{{.Service}}</td></tr>
</table>
<p>{{.T.ExpiredRetry}}</p>
{{- end}}
<p>{{.T.SignatureTitle}}</p>
<p style="font-size:12px;color:#777;">{{.T.Footer}}</p>
</body>
</html>
`))

type bodyData struct {
	T       TranslationSet
	Name    string
	OrderID string
	Service string
	Paid    bool
	Amount  string
	Method  string
	PaidAt  string
	HasLogo bool
	LogoCID string
}

// Render produces the subject and HTML body for req in the language of set.
func Render(req Request, set TranslationSet, withLogo bool) (subject, body string, err error) {
	service := Sanitize(req.ServiceName)
	data := bodyData{
		T:       set,
		Name:    Sanitize(req.CustomerName),
		OrderID: Sanitize(req.OrderID),
		Service: service,
		HasLogo: withLogo,
		LogoCID: logoContentID,
	}

	switch req.Kind {
	case KindPaid:
		subject = fmt.Sprintf(set.PaidSubject, service)
		data.Paid = true
		if req.Paid != nil {
			data.Amount = formatAmount(req.Paid.Amount, Sanitize(req.Paid.Currency))
			data.Method = Sanitize(req.Paid.Method)
			if !req.Paid.PaidAt.IsZero() {
				data.PaidAt = req.Paid.PaidAt.UTC().Format("02 Jan 2006 15:04 MST")
			}
		}
	case KindExpired:
		subject = fmt.Sprintf(set.ExpiredSubject, service)
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}

	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render body: %w", err)
	}
	return subject, buf.String(), nil
}

// formatAmount groups thousands; IDR has no minor unit.
func formatAmount(amount decimal.Decimal, currency string) string {
	if amount.IsZero() {
		return ""
	}
	places := int32(2)
	if strings.EqualFold(currency, "IDR") {
		places = 0
	}
	fixed := amount.StringFixed(places)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, frac, hasFrac := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(r)
	}

	out := sign + grouped.String()
	if hasFrac {
		out += "." + frac
	}
	if currency != "" {
		out = strings.ToUpper(currency) + " " + out
	}
	return out
}
