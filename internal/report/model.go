package report

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/conjoint-cli/internal/estimate"
)

// SaveModel writes m to path as indented JSON.
func SaveModel(path string, m *estimate.Model) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "report: encode model %s", m.Name)
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}

// LoadModel reads a model written by SaveModel.
func LoadModel(path string) (*estimate.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read %s", path)
	}
	var m estimate.Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrapf(err, "report: decode %s", path)
	}
	if len(m.Coef) != len(m.Columns) || len(m.SE) != len(m.Columns) {
		return nil, eris.Errorf("report: %s has %d columns but %d coefficients", path, len(m.Columns), len(m.Coef))
	}
	return &m, nil
}
