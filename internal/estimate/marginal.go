package estimate

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/conjoint-cli/internal/design"
)

// MarginalMean is the probability of support given that a level is shown.
type MarginalMean struct {
	Attribute string  `csv:"attribute" json:"attribute"`
	Level     string  `csv:"level" json:"level"`
	Column    string  `csv:"column" json:"column"`
	P         float64 `csv:"probability" json:"probability"`
	SE        float64 `csv:"standard_error" json:"standard_error"`
	N         int     `csv:"n" json:"n"`
}

// ConditionalProbability returns p = hits/n and the binomial standard error
// sqrt(p(1-p)/n). Both are NaN when n is zero.
func ConditionalProbability(hits, n int) (p, se float64) {
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	p = float64(hits) / float64(n)
	return p, math.Sqrt(p * (1 - p) / float64(n))
}

// MarginalMeans computes one MarginalMean per dummy column. support is
// aligned with the rows of d.
func MarginalMeans(d *design.Dummies, support []bool) ([]MarginalMean, error) {
	rows, cols := d.X.Dims()
	if rows != len(support) {
		return nil, eris.Errorf("estimate: %d dummy rows but %d outcomes", rows, len(support))
	}
	out := make([]MarginalMean, cols)
	for j := 0; j < cols; j++ {
		var n, hits int
		for i := 0; i < rows; i++ {
			if d.X.At(i, j) != 1 {
				continue
			}
			n++
			if support[i] {
				hits++
			}
		}
		p, se := ConditionalProbability(hits, n)
		out[j] = MarginalMean{
			Attribute: d.Groups[j],
			Level:     d.Levels[j],
			Column:    d.Columns[j],
			P:         p,
			SE:        se,
			N:         n,
		}
	}
	return out, nil
}
