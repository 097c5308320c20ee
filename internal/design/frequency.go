package design

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Frequency is the share of one attribute level within its group.
type Frequency struct {
	Group string  `csv:"group"`
	Level string  `csv:"attribute_level"`
	Share float64 `csv:"frequency"`
}

// Frequencies divides each level's column sum by its group's total.
func Frequencies(d *Dummies) []Frequency {
	sums := make([]float64, len(d.Columns))
	totals := map[string]float64{}
	for j := range d.Columns {
		sums[j] = floats.Sum(mat.Col(nil, j, d.X))
		totals[d.Groups[j]] += sums[j]
	}
	out := make([]Frequency, len(d.Columns))
	for j := range d.Columns {
		out[j] = Frequency{Group: d.Groups[j], Level: d.Levels[j], Share: sums[j] / totals[d.Groups[j]]}
	}
	return out
}
