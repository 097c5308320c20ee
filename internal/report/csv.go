// Package report writes pipeline artifacts: CSV tables, model files, the
// LaTeX estimation table, figures and terminal summaries.
package report

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/conjoint-cli/internal/survey"
)

// WriteFrame writes df to path as CSV with a header row.
func WriteFrame(path string, df *survey.Frame) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(df.Columns()); err != nil {
		return eris.Wrap(err, "report: write header")
	}
	for i := 0; i < df.Len(); i++ {
		if err := w.Write(df.Row(i)); err != nil {
			return eris.Wrapf(err, "report: write row %d", i)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "report: flush %s", path)
	}
	return nil
}

// WriteTable writes a slice of tagged structs to path as CSV.
func WriteTable[T any](path string, rows []T) error {
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrapf(err, "report: encode %s", path)
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}

// ReadTable reads a CSV file written by WriteTable.
func ReadTable[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read %s", path)
	}
	var rows []T
	if err := csvutil.Unmarshal(data, &rows); err != nil {
		return nil, eris.Wrapf(err, "report: decode %s", path)
	}
	return rows, nil
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "report: create directory for %s", path)
	}
	return nil
}
