package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectRows(t *testing.T, rowCh <-chan []string, errCh <-chan error) ([][]string, error) {
	t.Helper()
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	// Drain error channel
	for err := range errCh {
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func TestStreamCSV_Basic(t *testing.T) {
	input := "a,b,c\n1,2,3\n4,5,6\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"a", "b", "c"}, rows[0])
	assert.Equal(t, []string{"4", "5", "6"}, rows[2])
}

func TestStreamCSV_TrimSpace(t *testing.T) {
	input := " a , b \n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{TrimSpace: true})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, rows[0])
}

func TestStreamCSV_Windows1252(t *testing.T) {
	// 0xE9 is "é" in windows-1252.
	input := []byte("name\nCaf\xe9\n")
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(string(input)), CSVOptions{
		Encoding:  "windows-1252",
		HasHeader: true,
	})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Café", rows[0][0])
}

func TestStreamCSV_UnknownCharset(t *testing.T) {
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader("a\n"), CSVOptions{Encoding: "klingon"})
	_, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported charset")
}

func TestStreamCSV_ContextCancellation(t *testing.T) {
	var sb strings.Builder
	for range 10000 {
		sb.WriteString("a,b,c\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rowCh, errCh := StreamCSV(ctx, strings.NewReader(sb.String()), CSVOptions{})
	_, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
}

func TestReadCSV_StripsBOM(t *testing.T) {
	input := "\ufeffStartDate,likert_1_1\nmeta,meta\n2024-01-01,6\n"
	frame, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"StartDate", "likert_1_1"}, frame.Columns())
	assert.Equal(t, 2, frame.Len())
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(context.Background(), strings.NewReader(""), CSVOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty input")
}

func TestReadSurvey_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw_data.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n3,4\n"), 0644))

	frame, err := ReadSurvey(context.Background(), path, Options{Encoding: "windows-1252"})
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Len())
}

func TestReadSurvey_MissingFile(t *testing.T) {
	_, err := ReadSurvey(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetcher: open")
}
