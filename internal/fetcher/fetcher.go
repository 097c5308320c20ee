package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/conjoint-cli/internal/survey"
)

// Options selects how a survey export is decoded.
type Options struct {
	Encoding string // CSV charset label
	Sheet    string // XLSX sheet name
}

// ReadSurvey loads a raw survey export, picking the parser from the file extension.
func ReadSurvey(ctx context.Context, path string, opts Options) (*survey.Frame, error) {
	var (
		frame *survey.Frame
		err   error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		frame, err = ReadXLSX(path, XLSXOptions{SheetName: opts.Sheet})
	default:
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil, eris.Wrapf(openErr, "fetcher: open %s", path)
		}
		defer f.Close() //nolint:errcheck
		frame, err = ReadCSV(ctx, f, CSVOptions{Encoding: opts.Encoding})
	}
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", path)
	}

	zap.L().Debug("fetcher: loaded survey export",
		zap.String("path", path),
		zap.Int("rows", frame.Len()),
		zap.Int("columns", len(frame.Columns())),
	)
	return frame, nil
}
