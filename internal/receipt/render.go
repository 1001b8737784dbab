package receipt

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"dbtcheck/internal/status"
)

//go:embed templates/receipt.html.tmpl
var templateFS embed.FS

var printTemplate = template.Must(template.ParseFS(templateFS, "templates/receipt.html.tmpl"))

type printView struct {
	Receipt Receipt
	Lang    string
	Labels  map[string]string
}

// Render writes a self-contained HTML document that opens the print dialog
// on load. Headings are bilingual; labels follow tr.
func Render(w io.Writer, r Receipt, lang string, tr status.Translator) error {
	labels := map[string]string{}
	for _, key := range []string{"status_report", "receipt_id", "aadhaar_number", "issued_at", "total_checks", "passed", "failed", "print_report"} {
		labels[key] = tr.T(key)
	}
	if err := printTemplate.Execute(w, printView{Receipt: r, Lang: lang, Labels: labels}); err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	return nil
}
