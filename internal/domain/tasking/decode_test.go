package tasking_test

import (
	"encoding/json"
	"testing"

	"github.com/rpggio/tasking/internal/domain/tasking"
	"github.com/stretchr/testify/require"
)

func TestDecodeStore_ClassifiesRecords(t *testing.T) {
	store, warnings, err := tasking.DecodeStore([]byte(`{
		"1": {"Image File Name": "IMG", "Sensor Name": "S1", "TTG": 3, "Priority": null, "Assignee": null},
		"2": {"Area Name": "N", "Parent ID": 1, "SCVU Image Area ID": 501, "Remarks": "check"},
		"3": {"Sensor Name": "orphan"},
		"4": "not an object",
		"x": {"Image File Name": "Named"}
	}`))
	require.NoError(t, err)

	require.Len(t, store, 3)
	img := store["1"]
	require.Equal(t, tasking.KindImage, img.Kind)
	require.Equal(t, "IMG", img.Name)
	require.Empty(t, img.Assignee)
	require.Empty(t, img.Priority)
	require.Equal(t, "S1", img.Attributes["Sensor Name"])
	require.Equal(t, json.Number("3"), img.Attributes["TTG"])

	area := store["2"]
	require.Equal(t, tasking.KindArea, area.Kind)
	require.Equal(t, tasking.ID("1"), area.ParentID)
	require.Equal(t, tasking.ID("501"), area.SecondaryID)
	require.Equal(t, "check", area.Attributes["Remarks"])
	require.NotContains(t, area.Attributes, "Parent ID")

	require.Equal(t, tasking.KindImage, store["x"].Kind)

	require.Len(t, warnings, 2)
	reasons := map[string]string{}
	for _, w := range warnings {
		reasons[w.Key] = w.Reason
	}
	require.Contains(t, reasons, "3")
	require.Contains(t, reasons, "4")
}

func TestDecodeStore_Malformed(t *testing.T) {
	_, _, err := tasking.DecodeStore([]byte(`[1,2,3]`))
	require.ErrorIs(t, err, tasking.ErrMalformedStore)
}

func TestDecodeStore_DuplicateCanonicalKeys(t *testing.T) {
	store, warnings, err := tasking.DecodeStore([]byte(`{
		"01": {"Image File Name": "first"},
		"1": {"Image File Name": "second"}
	}`))
	require.NoError(t, err)
	require.Len(t, store, 1)
	require.Equal(t, "first", store["1"].Name)
	require.Len(t, warnings, 1)
	require.Equal(t, "duplicate record id", warnings[0].Reason)
}

func TestParseRecord_AreaWithoutNameFallsBackToID(t *testing.T) {
	rec, err := tasking.ParseRecord("42", map[string]any{"Parent ID": "7"})
	require.NoError(t, err)
	require.Equal(t, "42", rec.Name)
}

func TestParseRecord_InvalidParent(t *testing.T) {
	_, err := tasking.ParseRecord("42", map[string]any{"Parent ID": 1.5})
	require.Error(t, err)
}

func TestNewID(t *testing.T) {
	cases := []struct {
		in   any
		want tasking.ID
		ok   bool
	}{
		{in: 12, want: "12", ok: true},
		{in: float64(12), want: "12", ok: true},
		{in: "12", want: "12", ok: true},
		{in: " 012 ", want: "12", ok: true},
		{in: json.Number("12"), want: "12", ok: true},
		{in: "12.0", want: "12", ok: true},
		{in: "abc", want: "abc", ok: true},
		{in: 1.5, ok: false},
		{in: "", ok: false},
		{in: nil, ok: false},
		{in: true, ok: false},
	}
	for _, tc := range cases {
		got, ok := tasking.NewID(tc.in)
		require.Equal(t, tc.ok, ok, "input %v", tc.in)
		require.Equal(t, tc.want, got, "input %v", tc.in)
	}
}

func TestID_JSON(t *testing.T) {
	data, err := json.Marshal([]tasking.ID{"5", "img-a"})
	require.NoError(t, err)
	require.JSONEq(t, `[5, "img-a"]`, string(data))

	var ids []tasking.ID
	require.NoError(t, json.Unmarshal([]byte(`[5, "6", "b"]`), &ids))
	require.Equal(t, []tasking.ID{"5", "6", "b"}, ids)

	var bad tasking.ID
	require.ErrorIs(t, json.Unmarshal([]byte(`2.5`), &bad), tasking.ErrInvalidID)
}
