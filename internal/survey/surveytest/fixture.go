// Package surveytest builds synthetic survey exports for tests.
package surveytest

import (
	"fmt"
	"math/rand/v2"

	"github.com/sells-group/conjoint-cli/internal/config"
	"github.com/sells-group/conjoint-cli/internal/survey"
)

// Rounds and Attributes describe the synthetic instrument.
const (
	Rounds     = 6
	Attributes = 5
)

// Levels holds the attribute levels used by the generator, keyed by group.
var Levels = map[string][]string{
	"att_1": {"2030", "2035", "2040"},
	"att_2": {"Retraining", "Direct payments", "No compensation"},
	"att_3": {"Low", "Medium", "High"},
	"att_4": {"Federal", "State", "Local"},
	"att_5": {"Tax", "Levy", "Debt"},
}

// Groups lists attribute groups in order.
var Groups = []string{"att_1", "att_2", "att_3", "att_4", "att_5"}

// Knowledge answers that count as correct.
var Knowledge = []config.AwarenessItem{
	{Column: "knowledge_1", Correct: "2038"},
	{Column: "knowledge_2", Correct: "Lignite"},
	{Column: "knowledge_3", Correct: "Yes"},
}

// Raw returns a raw export with two leading metadata rows followed by n
// respondents. The same seed yields the same table.
func Raw(n int, seed uint64) *survey.Frame {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	cols := RawColumns()
	rows := make([][]string, 0, n+2)
	rows = append(rows, metadataRow(cols, "question"), metadataRow(cols, "import"))

	districts := []string{"North", "South", "East"}
	for i := 0; i < n; i++ {
		v := map[string]string{
			"ResponseId":             fmt.Sprintf("R_%04d", i+1),
			"treatment_status":       fmt.Sprint(i % 2),
			"trust_in_governement_1": fmt.Sprint(1 + rng.IntN(7)),
			"trust_in_governement_2": fmt.Sprint(1 + rng.IntN(7)),
			"trust_in_governement_3": fmt.Sprint(1 + rng.IntN(7)),
			"locationFilter":         fmt.Sprint(1 + (i/2)%2),
			"income":                 fmt.Sprint(1 + rng.IntN(8)),
			"district":               districts[i%len(districts)],
			"LocationLatitude":       fmt.Sprintf("%.4f", 50.5+rng.Float64()*2),
			"LocationLongitude":      fmt.Sprintf("%.4f", 7+rng.Float64()*7),
		}
		if i%7 == 3 {
			v["income"] = ""
		}
		for k, item := range Knowledge {
			if rng.IntN(3) > 0 || k == 2 {
				v[item.Column] = item.Correct
			} else {
				v[item.Column] = "Don't know"
			}
		}
		for r := 1; r <= Rounds; r++ {
			scoreA, scoreB := 0, 0
			for a := 1; a <= Attributes; a++ {
				levels := Levels[Groups[a-1]]
				la, lb := rng.IntN(len(levels)), rng.IntN(len(levels))
				v[fmt.Sprintf("round_%d_att_%d_a", r, a)] = levels[la]
				v[fmt.Sprintf("round_%d_att_%d_b", r, a)] = levels[lb]
				scoreA += la
				scoreB += lb
			}
			likertA := clamp(1+scoreA/2+rng.IntN(3), 1, 7)
			likertB := clamp(1+scoreB/2+rng.IntN(3), 1, 7)
			v[fmt.Sprintf("likert_%d_1", r)] = fmt.Sprint(likertA)
			v[fmt.Sprintf("likert_%d_2", r)] = fmt.Sprint(likertB)
			choice := "A"
			if likertB > likertA {
				choice = "B"
			}
			if rng.IntN(10) == 0 {
				choice = flip(choice)
			}
			v[fmt.Sprintf("choice_set_%d", r)] = choice
		}

		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = v[c]
		}
		rows = append(rows, row)
	}

	f, err := survey.NewFrame(cols, rows)
	if err != nil {
		panic(err)
	}
	return f
}

// RawColumns lists the columns of the synthetic export.
func RawColumns() []string {
	cols := []string{
		"ResponseId", "treatment_status",
		"trust_in_governement_1", "trust_in_governement_2", "trust_in_governement_3",
		"locationFilter", "income", "district", "LocationLatitude", "LocationLongitude",
	}
	for _, k := range Knowledge {
		cols = append(cols, k.Column)
	}
	for r := 1; r <= Rounds; r++ {
		for a := 1; a <= Attributes; a++ {
			cols = append(cols, fmt.Sprintf("round_%d_att_%d_a", r, a), fmt.Sprintf("round_%d_att_%d_b", r, a))
		}
		cols = append(cols, fmt.Sprintf("choice_set_%d", r), fmt.Sprintf("likert_%d_1", r), fmt.Sprintf("likert_%d_2", r))
	}
	return cols
}

// VariableSpec keeps every analysis column of the synthetic export.
func VariableSpec() *config.VariableSpec {
	spec := &config.VariableSpec{}
	add := func(name, typ string, names ...string) {
		spec.Groups = append(spec.Groups, config.VariableGroup{Name: name, Type: typ, Names: names})
	}
	add("treatment", config.TypeNumerical, "treatment_status")
	add("trust", config.TypeNumerical, "trust_in_governement_1", "trust_in_governement_2", "trust_in_governement_3")
	add("location", config.TypeNumerical, "locationFilter", "LocationLatitude", "LocationLongitude")
	add("income", config.TypeNumerical, "income")
	add("district", config.TypeCategorical, "district")
	add("knowledge", config.TypeCategorical, "knowledge_1", "knowledge_2", "knowledge_3")

	var atts, choices, likert []string
	for r := 1; r <= Rounds; r++ {
		for a := 1; a <= Attributes; a++ {
			atts = append(atts, fmt.Sprintf("round_%d_att_%d_a", r, a), fmt.Sprintf("round_%d_att_%d_b", r, a))
		}
		choices = append(choices, fmt.Sprintf("choice_set_%d", r))
		likert = append(likert, fmt.Sprintf("likert_%d_1", r), fmt.Sprintf("likert_%d_2", r))
	}
	add("attributes", config.TypeCategorical, atts...)
	add("choices", config.TypeCategorical, choices...)
	add("likert", config.TypeNumerical, likert...)
	return spec
}

func metadataRow(cols []string, kind string) []string {
	row := make([]string, len(cols))
	for j, c := range cols {
		row[j] = kind + ":" + c
	}
	return row
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func flip(choice string) string {
	if choice == "A" {
		return "B"
	}
	return "A"
}
