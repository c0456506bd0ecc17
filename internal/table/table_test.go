package table

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestTableAppendIsPrefixPreserving(t *testing.T) {
	dir := t.TempDir()
	tbl := Open[row](filepath.Join(dir, "rows.tbl"))

	require.NoError(t, tbl.Append([]row{{ID: 1, Name: "a"}}))
	first, err := tbl.ReadAll()
	require.NoError(t, err)
	require.Len(t, first, 1)

	require.NoError(t, tbl.Append([]row{{ID: 2, Name: "b"}}))
	second, err := tbl.ReadAll()
	require.NoError(t, err)
	require.Len(t, second, 2)

	assert.Equal(t, first[0], second[0], "append must never mutate previously written rows")
	assert.Equal(t, row{ID: 2, Name: "b"}, second[1])
}

func TestTableAppendEmptyIsNoop(t *testing.T) {
	dir := t.TempDir()
	tbl := Open[row](filepath.Join(dir, "rows.tbl"))
	require.NoError(t, tbl.Append(nil))
	rows, err := tbl.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTableReadAllMissingFile(t *testing.T) {
	tbl := Open[row](filepath.Join(t.TempDir(), "missing.tbl"))
	rows, err := tbl.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, rows)
}
