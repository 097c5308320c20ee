package report

import (
	"fmt"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sells-group/conjoint-cli/internal/estimate"
)

// Format selects how summaries render.
type Format int

const (
	ASCII    Format = iota // terminal tables
	Markdown               // GitHub-flavoured Markdown tables
)

// ParseFormat maps "ascii" or "markdown" to a Format. Anything else is ASCII.
func ParseFormat(s string) Format {
	if s == "markdown" || s == "md" {
		return Markdown
	}
	return ASCII
}

func newWriter(f Format) table.Writer {
	w := table.NewWriter()
	if f == ASCII {
		w.SetStyle(table.StyleLight)
	}
	// Keep header and footer text as written; StyleLight uppercases both.
	w.Style().Format.Header = text.FormatDefault
	w.Style().Format.Footer = text.FormatDefault
	return w
}

func render(w table.Writer, f Format) string {
	if f == Markdown {
		return w.RenderMarkdown()
	}
	return w.Render()
}

// ModelSummary renders the coefficient table of m with fit statistics in
// the footer.
func ModelSummary(m *estimate.Model, f Format) string {
	w := newWriter(f)
	if m.Name != "" {
		w.SetTitle(m.Name)
	}
	w.AppendHeader(table.Row{"term", "coef", "std err", "z", "P>|z|"})
	for j, name := range m.Columns {
		w.AppendRow(table.Row{name, num(m.Coef[j]), num(float64(m.SE[j])), num(float64(m.Z[j])), num(float64(m.P[j]))})
	}
	w.AppendFooter(table.Row{"obs", m.NObs, "clusters", m.Groups, ""})
	w.AppendFooter(table.Row{"R2", num(float64(m.R2)), "F", num(float64(m.F)), num(float64(m.FPValue))})
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	return render(w, f)
}

// MarginalMeansSummary renders marginal means, one row per level.
func MarginalMeansSummary(mm []estimate.MarginalMean, f Format) string {
	w := newWriter(f)
	w.AppendHeader(table.Row{"attribute", "level", "P(support)", "std err", "n"})
	for _, m := range mm {
		w.AppendRow(table.Row{m.Attribute, m.Level, num(m.P), num(m.SE), m.N})
	}
	w.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	return render(w, f)
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return fmt.Sprintf("%.4f", v)
}
