package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sw *SheetWriter, tables []Table) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, sw.Write(&buf, tables))
	require.NotZero(t, buf.Len())

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err, "result is not a valid workbook")
	t.Cleanup(func() { f.Close() })
	return f
}

func TestSheetWriter_OneSheetPerTable(t *testing.T) {
	sw, err := NewSheetWriter("")
	require.NoError(t, err)

	tables := Generate(samplePayload(t))
	f := writeWorkbook(t, sw, tables)

	var want []string
	for _, tb := range tables {
		want = append(want, tb.Name)
	}
	assert.Equal(t, want, f.GetSheetList())

	rows, err := f.GetRows(TableA2TransportBOM)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, transportColumns, rows[0])
	assert.Equal(t, "Steel", rows[1][0])
}

func TestSheetWriter_Formatting(t *testing.T) {
	sw, err := NewSheetWriter("")
	require.NoError(t, err)
	f := writeWorkbook(t, sw, Generate(samplePayload(t)))
	sheet := TableA2TransportBOM

	// ton_km_per_product is column G.
	raw, err := f.GetCellValue(sheet, "G2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "0.08", raw)

	styleID, err := f.GetCellStyle(sheet, "G2")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.CustomNumFmt)
	assert.Equal(t, fmtTonKm, *style.CustomNumFmt)

	panes, err := f.GetPanes(sheet)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.YSplit)

	// "component" is short, so its width is clamped up to the minimum.
	width, err := f.GetColWidth(sheet, "A")
	require.NoError(t, err)
	assert.Equal(t, float64(minColWidth), width)

	width, err = f.GetColWidth(sheet, "G")
	require.NoError(t, err)
	assert.Equal(t, float64(len("ton_km_per_product")+2), width)
}

func TestSheetWriter_NullCellsStayEmpty(t *testing.T) {
	sw, err := NewSheetWriter("")
	require.NoError(t, err)
	f := writeWorkbook(t, sw, Generate(samplePayload(t)))

	// country of the only BOM row is empty.
	v, err := f.GetCellValue(TableA1Materials, "E2")
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestSheetWriter_SanitizesFormulaText(t *testing.T) {
	sw, err := NewSheetWriter("")
	require.NoError(t, err)
	f := writeWorkbook(t, sw, []Table{{
		Name:    "t",
		Columns: []string{"component"},
		Rows:    [][]any{{"=HYPERLINK(\"x\")"}},
	}})

	v, err := f.GetCellValue("t", "A2")
	require.NoError(t, err)
	assert.Equal(t, "'=HYPERLINK(\"x\")", v)
}

func TestSheetWriter_Template(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cover.xlsx")

	cover := excelize.NewFile()
	require.NoError(t, cover.SetSheetName("Sheet1", "Cover"))
	require.NoError(t, cover.SetCellStr("Cover", "A1", "Supplier intake"))
	require.NoError(t, cover.SaveAs(path))
	require.NoError(t, cover.Close())

	sw, err := NewSheetWriter(path)
	require.NoError(t, err)

	tables := Generate(samplePayload(t))
	f := writeWorkbook(t, sw, tables)
	sheets := f.GetSheetList()
	require.Len(t, sheets, len(tables)+1)
	assert.Equal(t, "Cover", sheets[0])
	assert.Equal(t, TableSummary, sheets[1])

	v, err := f.GetCellValue("Cover", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Supplier intake", v)
}

func TestNewSheetWriter_TemplateErrors(t *testing.T) {
	_, err := NewSheetWriter(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "clash.xlsx")
	clash := excelize.NewFile()
	require.NoError(t, clash.SetSheetName("Sheet1", TableEnergy))
	require.NoError(t, clash.SaveAs(path))
	require.NoError(t, clash.Close())

	_, err = NewSheetWriter(path)
	assert.ErrorContains(t, err, "collides")
}

func TestHeaderWidth(t *testing.T) {
	assert.Equal(t, 10.0, headerWidth("sku"))
	assert.Equal(t, 20.0, headerWidth("ton_km_per_product"))
	assert.Equal(t, 30.0, headerWidth("an_extremely_long_column_header_name"))
}
