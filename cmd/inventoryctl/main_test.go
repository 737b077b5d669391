package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/stockroom/internal/core"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inventory.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), "Tools"))
	for i, row := range [][]any{
		{"S.No.", "Item Description", "Stock"},
		{1, "Hammer", 4},
		{2, "Wrench", 1},
	} {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Tools", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

// run executes one inventoryctl invocation against the workbook.
func run(t *testing.T, workbook string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORE_BACKEND", "spreadsheet")

	var out, errOut bytes.Buffer
	a := newApp(&out, &errOut)
	a.root.SetArgs(append([]string{"--env-file", "", "--workbook", workbook}, args...))
	err := a.execute()
	return out.String(), err
}

func TestCategoriesCommand(t *testing.T) {
	wb := writeWorkbook(t)

	out, err := run(t, wb, "categories", "--json")
	require.NoError(t, err)

	var refs []core.CategoryRef
	require.NoError(t, json.Unmarshal([]byte(out), &refs))
	assert.Equal(t, []core.CategoryRef{{Sanitized: "Tools", Original: "Tools"}}, refs)
}

func TestShowCommand(t *testing.T) {
	wb := writeWorkbook(t)

	out, err := run(t, wb, "show", "Tools")
	require.NoError(t, err)
	assert.Contains(t, out, "Hammer")
	assert.Contains(t, out, "Item Description")

	_, err = run(t, wb, "show", "Garden")
	require.Error(t, err)
	assert.Equal(t, exitRejected, exitCode(err))
}

func TestSellAndRestock(t *testing.T) {
	wb := writeWorkbook(t)

	out, err := run(t, wb, "sell", "Tools", "1", "3")
	require.NoError(t, err)
	assert.Equal(t, "Sold 3 of Hammer.\n", out)

	_, err = run(t, wb, "sell", "Tools", "1", "3")
	require.Error(t, err)
	assert.Equal(t, exitRejected, exitCode(err))
	assert.Contains(t, err.Error(), "Available: 1")

	_, err = run(t, wb, "restock", "Tools", "2", "5")
	require.NoError(t, err)

	out, err = run(t, wb, "show", "Tools", "--json")
	require.NoError(t, err)
	var values [][]string
	require.NoError(t, json.Unmarshal([]byte(out), &values))
	require.Len(t, values, 3)
	assert.Equal(t, "1", values[1][2])
	assert.Equal(t, "6", values[2][2])
}

func TestSellRejectsBadQuantity(t *testing.T) {
	wb := writeWorkbook(t)

	for _, qty := range []string{"0", "-2", "two"} {
		_, err := run(t, wb, "sell", "Tools", "1", qty)
		require.Error(t, err, qty)
		assert.Equal(t, exitRejected, exitCode(err), qty)
	}
}

func TestAddCommand(t *testing.T) {
	wb := writeWorkbook(t)

	out, err := run(t, wb, "add", "Tools", "3", "Saw", "2")
	require.NoError(t, err)
	assert.Equal(t, "Entry added successfully.\n", out)

	out, err = run(t, wb, "add", "Tools", "3", "Saw", "1")
	require.NoError(t, err)
	assert.Equal(t, "Stock updated successfully.\n", out)

	out, err = run(t, wb, "add", "--row", "2", "Tools", "1", "Claw Hammer", "9")
	require.NoError(t, err)
	assert.Equal(t, "Entry updated successfully.\n", out)

	_, err = run(t, wb, "add", "Garden", "1", "Rake", "2")
	assert.Equal(t, exitRejected, exitCode(err))

	_, err = run(t, wb, "add", "--header", "S.No., Name, Quantity", "Garden", "1", "Rake", "2")
	require.NoError(t, err)

	out, err = run(t, wb, "show", "Tools", "--json")
	require.NoError(t, err)
	var values [][]string
	require.NoError(t, json.Unmarshal([]byte(out), &values))
	assert.Equal(t, [][]string{
		{"S.No.", "Item Description", "Stock"},
		{"1", "Claw Hammer", "9"},
		{"2", "Wrench", "1"},
		{"3", "Saw", "3"},
	}, values)
}

func TestDeleteCommands(t *testing.T) {
	wb := writeWorkbook(t)

	_, err := run(t, wb, "delete-entry", "Tools", "2")
	require.NoError(t, err)

	_, err = run(t, wb, "delete-entry", "Tools", "2")
	assert.Equal(t, exitRejected, exitCode(err))

	_, err = run(t, wb, "clear", "Tools")
	require.Error(t, err)
	assert.Equal(t, exitSysError, exitCode(err), "missing --yes")

	_, err = run(t, wb, "clear", "Tools", "--yes")
	require.NoError(t, err)

	out, err := run(t, wb, "show", "Tools", "--json")
	require.NoError(t, err)
	var values [][]string
	require.NoError(t, json.Unmarshal([]byte(out), &values))
	assert.Len(t, values, 1)

	// The workbook keeps its last sheet.
	_, err = run(t, wb, "delete-category", "Tools", "--yes")
	assert.Equal(t, exitRejected, exitCode(err))
}

func TestStatusCommand(t *testing.T) {
	wb := writeWorkbook(t)

	out, err := run(t, wb, "status", "--json")
	require.NoError(t, err)

	var st core.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, 1, st.Categories)
	assert.False(t, st.Stale)
}

func TestMissingWorkbookIsSystemError(t *testing.T) {
	t.Setenv("WORKBOOK_CREATE", "false")

	_, err := run(t, filepath.Join(t.TempDir(), "nope.xlsx"), "categories")
	require.Error(t, err)
	assert.Equal(t, exitSysError, exitCode(err))
}
