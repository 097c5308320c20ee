package fetcher

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestXLSX(t *testing.T, name string, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(name)
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			cell := row.AddCell()
			cell.SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestReadXLSX_Basic(t *testing.T) {
	path := createTestXLSX(t, "Sheet1", [][]string{
		{"ResponseId", "likert_1_1", "choice_set_1"},
		{"R_1", "6", "A"},
		{"R_2", "2", "B"},
	})

	frame, err := ReadXLSX(path, XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ResponseId", "likert_1_1", "choice_set_1"}, frame.Columns())
	require.Equal(t, 2, frame.Len())
	assert.Equal(t, []string{"R_2", "2", "B"}, frame.Row(1))
}

func TestReadXLSX_SheetNotFound(t *testing.T) {
	path := createTestXLSX(t, "Sheet1", [][]string{{"a"}})

	_, err := ReadXLSX(path, XLSXOptions{SheetName: "Responses"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadXLSX_IndexOutOfRange(t *testing.T) {
	path := createTestXLSX(t, "Sheet1", [][]string{{"a"}})

	_, err := ReadXLSX(path, XLSXOptions{SheetIndex: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestReadSurvey_XLSXByExtension(t *testing.T) {
	path := createTestXLSX(t, "Responses", [][]string{
		{"a", "b"},
		{"1", "2"},
	})

	frame, err := ReadSurvey(context.Background(), path, Options{Sheet: "Responses"})
	require.NoError(t, err)
	assert.Equal(t, 1, frame.Len())
}
