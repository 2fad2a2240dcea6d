package importexport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/datagrid/internal/columns"
	"github.com/kasuganosora/datagrid/internal/model"
	"github.com/kasuganosora/datagrid/internal/store"
)

func TestImportTableShapeAppend(t *testing.T) {
	st := store.New(nil)
	cols := columns.New(st, 20, 400)

	req := ImportRequest{
		Mode:   model.ImportAppend,
		Format: FormatTableShape,
		Table: &TableShape{
			Headers: []string{"name", "age"},
			Rows: [][]interface{}{
				{"Alice", 30},
				{"Bob", 25},
			},
		},
	}

	result, err := Import(context.Background(), st, cols, req)
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.ImportedRows)
	assert.Equal(t, 2, st.GetRowCount())
}

func TestImportExpandSchemaRegistersColumns(t *testing.T) {
	st := store.New(nil)
	cols := columns.New(st, 20, 400)

	req := ImportRequest{
		Mode:         model.ImportAppend,
		Format:       FormatRowMappingList,
		RowMappings:  []model.Row{{"name": "Carl", "tier": "gold"}},
		ExpandSchema: true,
	}

	_, err := Import(context.Background(), st, cols, req)
	require.NoError(t, err)
	assert.True(t, cols.Exists("tier"))
}

func TestImportReplaceClearsExistingRows(t *testing.T) {
	st := store.New(nil)
	cols := columns.New(st, 20, 400)
	st.AddRow(model.Row{"name": "Old"})

	req := ImportRequest{
		Mode:        model.ImportReplace,
		Format:      FormatRowMappingList,
		RowMappings: []model.Row{{"name": "New"}},
	}
	_, err := Import(context.Background(), st, cols, req)
	require.NoError(t, err)
	assert.Equal(t, 1, st.GetRowCount())
	row, _ := st.GetRow(0)
	assert.Equal(t, "New", row["name"])
}

func TestImportMergeUpdatesByRowIDAndAppendsUnmatched(t *testing.T) {
	st := store.New(nil)
	cols := columns.New(st, 20, 400)
	_, id, _ := st.AddRow(model.Row{"name": "Original"})

	req := ImportRequest{
		Mode:   model.ImportMerge,
		Format: FormatRowMappingList,
		RowMappings: []model.Row{
			{model.ReservedRowID: string(id), "name": "Updated"},
			{"name": "Brand New"},
		},
	}
	result, err := Import(context.Background(), st, cols, req)
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.ImportedRows)
	assert.Equal(t, 2, st.GetRowCount())

	row, ok := st.GetRowByID(id)
	require.True(t, ok)
	assert.Equal(t, "Updated", row["name"])
}

func TestImportRejectsMissingTable(t *testing.T) {
	st := store.New(nil)
	cols := columns.New(st, 20, 400)

	_, err := Import(context.Background(), st, cols, ImportRequest{Format: FormatTableShape})
	assert.Error(t, err)
}

func TestImportInvokesOnBatchHook(t *testing.T) {
	st := store.New(nil)
	cols := columns.New(st, 20, 400)

	var seenRows int
	req := ImportRequest{
		Mode:        model.ImportAppend,
		Format:      FormatRowMappingList,
		RowMappings: []model.Row{{"name": "A"}, {"name": "B"}},
		BatchSize:   1,
		OnBatch: func(ctx context.Context, rows []model.Row, ids []model.RowID) error {
			seenRows += len(rows)
			return nil
		},
	}
	_, err := Import(context.Background(), st, cols, req)
	require.NoError(t, err)
	assert.Equal(t, 2, seenRows)
}

func TestExportTableShapeProjectsColumns(t *testing.T) {
	st := store.New(nil)
	st.AddRow(model.Row{"name": "Alice", "age": 30})
	st.AddRow(model.Row{"name": "Bob", "age": 25})

	result, err := Export(context.Background(), st, ExportRequest{
		Format:  FormatTableShape,
		Columns: []string{"name"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.ExportedRows)
	require.NotNil(t, result.Table)
	assert.Equal(t, []string{"name"}, result.Table.Headers)
}

func TestExportOnlyFilteredHonorsVisibility(t *testing.T) {
	st := store.New(nil)
	st.AddRow(model.Row{"name": "Alice"})
	st.AddRow(model.Row{"name": "Bob"})
	require.NoError(t, st.SetVisible([]bool{true, false}))

	result, err := Export(context.Background(), st, ExportRequest{
		Format:       FormatRowMappingList,
		OnlyFiltered: true,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.ExportedRows)
	assert.Equal(t, "Alice", result.RowMappings[0]["name"])
}

func TestExportOnlyCheckedHonorsCheckboxColumn(t *testing.T) {
	st := store.New(nil)
	st.AddRow(model.Row{"name": "Alice", "picked": true})
	st.AddRow(model.Row{"name": "Bob", "picked": false})

	result, err := Export(context.Background(), st, ExportRequest{
		Format:         FormatRowMappingList,
		OnlyChecked:    true,
		CheckboxColumn: "picked",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.ExportedRows)
}

func TestExportRemoveAfterExportDeletesRows(t *testing.T) {
	st := store.New(nil)
	st.AddRow(model.Row{"name": "Alice"})

	result, err := Export(context.Background(), st, ExportRequest{
		Format:            FormatRowMappingList,
		RemoveAfterExport: true,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 0, st.GetRowCount())
}

func TestExportRejectsUnsupportedFormat(t *testing.T) {
	st := store.New(nil)
	_, err := Export(context.Background(), st, ExportRequest{Format: Format("Bogus")})
	assert.Error(t, err)
}

func TestToRowMappingsKeysByHeader(t *testing.T) {
	shape := TableShape{
		Headers: []string{"a", "b"},
		Rows:    [][]interface{}{{1, 2}},
	}
	out := shape.ToRowMappings()
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0]["a"])
	assert.Equal(t, 2, out[0]["b"])
}
