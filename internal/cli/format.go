// Output helpers shared by the commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var brl = message.NewPrinter(language.BrazilianPortuguese)

// formatMoney renders v in Brazilian reais, e.g. "R$ 15.000,00".
func formatMoney(v float64) string {
	return "R$ " + brl.Sprintf("%.2f", v)
}

func formatPercent(v float64) string {
	return brl.Sprintf("%.1f%%", v)
}

// formatSince renders a past time relative to now, or "never".
func formatSince(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return humanize.Time(*t)
}

// formatUntil renders a future time relative to now, e.g. "6 days from now".
func formatUntil(t time.Time) string {
	return humanize.Time(t)
}

func formatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysErr(fmt.Errorf("marshal JSON: %w", err))
	}
	fmt.Fprintln(w, string(out))
	return nil
}
