package documents

import (
	"bytes"
	"html/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Money renders an amount with thousands separators and two decimals.
func Money(amount float64) string {
	return printer.Sprintf("%.2f", amount)
}

const documentHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; color: #1a1a1a; margin: 32px; }
  h1 { font-size: 20px; margin-bottom: 2px; }
  .meta { color: #555; margin-bottom: 24px; }
  .meta span { margin-right: 16px; }
  table { width: 100%; border-collapse: collapse; margin-top: 12px; }
  th { text-align: left; border-bottom: 2px solid #1a1a1a; padding: 6px 4px; }
  td { border-bottom: 1px solid #ddd; padding: 6px 4px; }
  td.num, th.num { text-align: right; }
  .total td { border-bottom: none; border-top: 2px solid #1a1a1a; font-weight: bold; }
  .notes { margin-top: 24px; color: #555; white-space: pre-wrap; }
</style>
</head>
<body>
  <h1>{{ .Title }}</h1>
  <div class="meta">
    <span>{{ .Reference }}</span>
    <span>{{ .ClientName }}</span>
    <span>{{ formatDate .Date }}</span>
    <span>{{ .Status }}</span>
  </div>
  <table>
    <thead>
      <tr>
        <th>Item</th>
        <th class="num">Qty</th>
        <th class="num">Unit price</th>
        {{ if .HasDiscounts }}<th class="num">Discount</th>{{ end }}
        <th class="num">Amount</th>
      </tr>
    </thead>
    <tbody>
      {{ range .Lines }}
      <tr>
        <td>{{ .Label }}</td>
        <td class="num">{{ printf "%g" .Quantity }}</td>
        <td class="num">{{ money .UnitPrice }}</td>
        {{ if $.HasDiscounts }}<td class="num">{{ printf "%g" .DiscountPercent }}%</td>{{ end }}
        <td class="num">{{ money .Amount }}</td>
      </tr>
      {{ end }}
      <tr class="total">
        <td colspan="{{ if .HasDiscounts }}4{{ else }}3{{ end }}">Total</td>
        <td class="num">{{ money .Total }}</td>
      </tr>
    </tbody>
  </table>
  {{ if .Notes }}<div class="notes">{{ .Notes }}</div>{{ end }}
</body>
</html>`

var documentTemplate = template.Must(template.New("document").Funcs(template.FuncMap{
	"money": Money,
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("January 2, 2006")
	},
}).Parse(documentHTML))

type documentView struct {
	Document
	HasDiscounts bool
}

// RenderDocumentHTML produces the HTML body handed to Gotenberg.
func RenderDocumentHTML(doc Document) (string, error) {
	view := documentView{Document: doc}
	for _, line := range doc.Lines {
		if line.DiscountPercent != 0 {
			view.HasDiscounts = true
			break
		}
	}

	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}
