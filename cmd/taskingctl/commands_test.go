package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rpggio/tasking/internal/domain/tasking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleStore = `{
	"1": {"Image File Name": "IMG_A", "Priority": "Low"},
	"2": {"Area Name": "North", "Parent ID": 1, "Assignee": "bob"},
	"3": {"Area Name": "South", "Parent ID": 1, "Assignee": "carol"},
	"x": "not a record"
}`

func writeStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte(exampleStore), 0o600))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRows(t *testing.T) {
	out, errOut, err := execute(t, "", "rows", writeStore(t))
	require.NoError(t, err)

	var rows []tasking.Row
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"IMG_A"}, rows[0].GroupName)
	assert.Equal(t, tasking.Multiple, rows[0].Assignee)
	assert.Contains(t, errOut, "warning: record x")
}

func TestRows_StdinAndTable(t *testing.T) {
	out, _, err := execute(t, exampleStore, "rows", "-", "--table")
	require.NoError(t, err)
	assert.Contains(t, out, "ASSIGNEE")
	assert.Contains(t, out, "IMG_A / North")
}

func TestAggregate(t *testing.T) {
	path := writeStore(t)

	out, _, err := execute(t, "", "aggregate", path, "--image", "1")
	require.NoError(t, err)
	assert.Equal(t, tasking.Multiple+"\n", out)

	out, _, err = execute(t, "", "aggregate", path, "--image", "1", "--edit", "3:assignee=bob")
	require.NoError(t, err)
	assert.Equal(t, "bob\n", out)

	_, _, err = execute(t, "", "aggregate", path, "--image", "2")
	require.ErrorIs(t, err, tasking.ErrRowNotFound)
}

func TestAssemble(t *testing.T) {
	out, _, err := execute(t, "", "assemble", writeStore(t),
		"--edit", "1:assignee=dave",
		"--edit", "1:priority=High",
		"--select", "1")
	require.NoError(t, err)

	var submission map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &submission))
	assert.Contains(t, out, `"dave"`)
	assert.Contains(t, out, `"High"`)
}

func TestParseEdit(t *testing.T) {
	edit, err := parseEdit("12:Priority=High")
	require.NoError(t, err)
	assert.Equal(t, tasking.Edit{RowID: tasking.MustID(12), Field: tasking.FieldPriority, Value: "High"}, edit)

	for _, raw := range []string{"12", "12:priority", ":priority=High"} {
		_, err := parseEdit(raw)
		assert.Error(t, err, raw)
	}
}

func TestEditRejected(t *testing.T) {
	_, _, err := execute(t, "", "assemble", writeStore(t), "--edit", "2:priority=High")
	require.ErrorIs(t, err, tasking.ErrFieldNotEditable)
}
