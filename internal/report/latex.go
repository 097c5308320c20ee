package report

import (
	"io"
	"math"
	"strconv"
	"strings"
	"text/template"

	"github.com/rotisserie/eris"

	"github.com/sells-group/conjoint-cli/internal/estimate"
)

// TableColumn is one model in the estimation table.
type TableColumn struct {
	Label string
	Model *estimate.Model
}

// TableOptions formats the estimation table.
type TableOptions struct {
	Decimal string // decimal separator, "." when empty

	// UnitsPerRespondent converts observations to respondents in the Obs row.
	UnitsPerRespondent int
}

type tableRow struct {
	Name  string
	Cells []string
}

type tableData struct {
	Align  string
	Labels []string
	Rows   []tableRow
	Stats  []tableRow
}

var estimationTable = template.Must(template.New("estimation").Parse(
	`\begin{tabular}{{"{"}}{{.Align}}{{"}"}}
\toprule
{{range .Labels}} & {{.}}{{end}} \\
\midrule
{{range .Rows}}{{.Name}}{{range .Cells}} & {{.}}{{end}} \\
{{end}}\midrule
{{range .Stats}}{{.Name}}{{range .Cells}} & {{.}}{{end}} \\
{{end}}\bottomrule
\end{tabular}
`))

var latexEscaper = strings.NewReplacer(`_`, `\_`, `&`, `\&`, `%`, `\%`, `#`, `\#`)

// EstimationTable writes a booktabs table with one column per model. Each
// coefficient cell stacks the estimate over its standard error; coefficients
// a model does not carry are left blank.
func EstimationTable(w io.Writer, cols []TableColumn, opts TableOptions) error {
	if len(cols) == 0 {
		return eris.New("report: estimation table needs at least one model")
	}
	if opts.Decimal == "" {
		opts.Decimal = "."
	}
	if opts.UnitsPerRespondent <= 0 {
		opts.UnitsPerRespondent = 12
	}

	data := tableData{Align: "l" + strings.Repeat("c", len(cols))}
	for _, c := range cols {
		data.Labels = append(data.Labels, latexEscaper.Replace(c.Label))
	}

	for _, name := range coefficientNames(cols) {
		row := tableRow{Name: latexEscaper.Replace(name)}
		for _, c := range cols {
			coef, se, ok := c.Model.Coefficient(name)
			if !ok {
				row.Cells = append(row.Cells, "")
				continue
			}
			row.Cells = append(row.Cells, `\makecell{ `+fixed(coef, opts.Decimal)+` \\ (`+fixed(se, opts.Decimal)+`) }`)
		}
		data.Rows = append(data.Rows, row)
	}

	obs := tableRow{Name: "Obs"}
	r2 := tableRow{Name: "R2"}
	f := tableRow{Name: "f-statistic"}
	for _, c := range cols {
		respondents := float64(c.Model.NObs) / float64(opts.UnitsPerRespondent)
		obs.Cells = append(obs.Cells, short(respondents, opts.Decimal))
		r2.Cells = append(r2.Cells, fixed(float64(c.Model.R2), opts.Decimal))
		f.Cells = append(f.Cells, fixed(float64(c.Model.F), opts.Decimal))
	}
	data.Stats = []tableRow{obs, r2, f}

	if err := estimationTable.Execute(w, data); err != nil {
		return eris.Wrap(err, "report: render estimation table")
	}
	return nil
}

// coefficientNames is the union of model columns in first-seen order.
func coefficientNames(cols []TableColumn) []string {
	seen := map[string]bool{}
	var names []string
	for _, c := range cols {
		for _, name := range c.Model.Columns {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

func fixed(v float64, decimal string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strings.Replace(strconv.FormatFloat(v, 'f', 3, 64), ".", decimal, 1)
}

func short(v float64, decimal string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", decimal, 1)
}
