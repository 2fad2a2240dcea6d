package columns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/datagrid/internal/griderr"
	"github.com/kasuganosora/datagrid/internal/model"
	"github.com/kasuganosora/datagrid/internal/store"
)

func newTestRegistry() *Registry {
	return New(store.New(nil), 20, 400)
}

func TestAddColumnBackfillsRows(t *testing.T) {
	r := newTestRegistry()
	_, id, err := r.store.AddRow(model.Row{"name": "Alice"})
	require.NoError(t, err)

	require.NoError(t, r.AddColumn(model.ColumnDef{Name: "Tier", Type: model.DataTypeString, Default: "free", Visible: true}))

	row, ok := r.store.GetRowByID(id)
	require.True(t, ok)
	assert.Equal(t, "free", row["Tier"])
}

func TestAddColumnRejectsDuplicateCaseInsensitive(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.AddColumn(model.ColumnDef{Name: "Tier", Type: model.DataTypeString}))

	err := r.AddColumn(model.ColumnDef{Name: "tier", Type: model.DataTypeString})
	require.Error(t, err)
	kind, ok := griderr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, griderr.KindConflict, kind)
}

func TestAddColumnRejectsEmptyName(t *testing.T) {
	r := newTestRegistry()
	err := r.AddColumn(model.ColumnDef{Name: ""})
	require.Error(t, err)
	kind, ok := griderr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, griderr.KindInvalidInput, kind)
}

func TestAddColumnClampsWidth(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.AddColumn(model.ColumnDef{Name: "wide", Width: 9000}))
	def, ok := r.GetColumn("wide")
	require.True(t, ok)
	assert.Equal(t, 400.0, def.Width)

	require.NoError(t, r.AddColumn(model.ColumnDef{Name: "narrow", Width: 1}))
	def, ok = r.GetColumn("narrow")
	require.True(t, ok)
	assert.Equal(t, 20.0, def.Width)
}

func TestRemoveColumnDropsRowKeyAndSchema(t *testing.T) {
	r := newTestRegistry()
	_, id, _ := r.store.AddRow(model.Row{"name": "Alice"})
	require.NoError(t, r.AddColumn(model.ColumnDef{Name: "tier", Default: "free"}))

	require.NoError(t, r.RemoveColumn("tier"))
	assert.False(t, r.Exists("tier"))

	row, _ := r.store.GetRowByID(id)
	_, has := row["tier"]
	assert.False(t, has)
}

func TestRemoveColumnUnknownReturnsNotFound(t *testing.T) {
	r := newTestRegistry()
	err := r.RemoveColumn("ghost")
	require.Error(t, err)
	kind, ok := griderr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, griderr.KindNotFound, kind)
}

func TestUpdateColumnReplacesDefinition(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.AddColumn(model.ColumnDef{Name: "tier", Type: model.DataTypeString, Default: "free"}))

	require.NoError(t, r.UpdateColumn(model.ColumnDef{Name: "tier", Type: model.DataTypeString, Default: "pro", Visible: true}))

	def, ok := r.GetColumn("tier")
	require.True(t, ok)
	assert.Equal(t, "pro", def.Default)
	assert.True(t, def.Visible)
}

func TestReorderColumnsValidatesPermutation(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.AddColumn(model.ColumnDef{Name: "a"}))
	require.NoError(t, r.AddColumn(model.ColumnDef{Name: "b"}))

	require.NoError(t, r.ReorderColumns([]string{"b", "a"}))
	assert.Equal(t, []string{"b", "a"}, r.Names())

	err := r.ReorderColumns([]string{"a", "a"})
	require.Error(t, err)
	kind, ok := griderr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, griderr.KindConflict, kind)

	err = r.ReorderColumns([]string{"a"})
	require.Error(t, err)
}

func TestResizeColumnClampsAndPersists(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.AddColumn(model.ColumnDef{Name: "a", Width: 100}))

	applied, err := r.ResizeColumn("a", 9000)
	require.NoError(t, err)
	assert.Equal(t, 400.0, applied)

	w, err := r.GetColumnWidth("a")
	require.NoError(t, err)
	assert.Equal(t, 400.0, w)

	_, err = r.ResizeColumn("ghost", 100)
	require.Error(t, err)
}

func TestCheckboxColumnHonorsSpecialTagOrFlag(t *testing.T) {
	r := newTestRegistry()
	_, ok := r.CheckboxColumn()
	assert.False(t, ok)

	require.NoError(t, r.AddColumn(model.ColumnDef{Name: "selected", IsCheckboxUX: true}))
	name, ok := r.CheckboxColumn()
	require.True(t, ok)
	assert.Equal(t, "selected", name)
}

func TestValidationAlertsColumnHonorsSpecialTag(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.AddColumn(model.ColumnDef{Name: "alerts", Special: model.SpecialValidationAlerts}))

	name, ok := r.ValidationAlertsColumn()
	require.True(t, ok)
	assert.Equal(t, "alerts", name)
}
