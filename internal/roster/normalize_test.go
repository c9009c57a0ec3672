package roster

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"regdesk/internal/roster/models"
	dErrors "regdesk/pkg/domain-errors"
)

func TestCanonicalColumn(t *testing.T) {
	tests := map[string]string{
		"Name":                 models.ColName,
		"  name ":              models.ColName,
		"REG STATUS":           models.ColRegistrationStatus,
		"regStatus":            models.ColRegistrationStatus,
		"status":               models.ColRegistrationStatus,
		"Confirm   Time":       models.ColConfirmationTime,
		"phone":                models.ColContact,
		"Contact  Info":        models.ColContact,
		"designation":          models.ColDesignationLevel,
		"DESIGNATION LEVEL":    models.ColDesignationLevel,
		"post":                 models.ColPosition,
		"dept":                 models.ColDivision,
		"sex":                  models.ColGender,
		"registration status":  models.ColRegistrationStatus,
		"t-shirt size":         "T-Shirt Size",
	}
	for in, want := range tests {
		assert.Equal(t, want, CanonicalColumn(in), "header %q", in)
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := map[string]string{
		"Confirmed":     models.StatusConfirmed,
		"  confirmed  ": models.StatusConfirmed,
		"CONFIRMED":     models.StatusConfirmed,
		"nan":           "",
		"NA":            "",
		"None":          "",
		"":              "",
		"pending":       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeStatus(in), "status %q", in)
	}
}

func TestNormalizeContact(t *testing.T) {
	tests := map[string]string{
		"0241234567":      "0241234567",
		"024-123-4567":    "0241234567",
		"+233 24 123 4567": "233241234567",
		"241234567.0":     "241234567",
		"  ":              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeContact(in), "contact %q", in)
	}
}

func TestNormalize_ReconcilesSheets(t *testing.T) {
	national := RawSheet{Name: "national_wk", Rows: [][]string{
		{"Timestamp", "Region", "Division", "Designation Level", "Name", "Gender", "Position", "Contact", "Registration Status", "Confirmation Time"},
		{"2025-01-01 10:00:00.000000", "Ashanti", "Kumasi Central", "Regional", "Ama Mensah", "Female", "Coordinator", "0241234567", "", ""},
		{"2025-01-01 10:05:00.000000", "Volta", "Ho", "District", "Kofi Agbo", "Male", "Usher", "0201234567", "confirmed", "Wed 01 Jan, 11:00"},
	}}
	manual := RawSheet{Name: "manual_wk", Rows: [][]string{
		{"name", "sex", "phone", "Dept", "region", "status", "T-Shirt"},
		{"Esi Owusu", "Female", "055 123 4567", "Madina", "Greater Accra", "nan", "M"},
		{},
	}}

	table, err := Normalize([]RawSheet{national, manual})
	require.NoError(t, err)

	wantColumns := append(append([]string(nil), models.Schema...), "T-Shirt")
	assert.Equal(t, wantColumns, table.Columns)
	assert.Equal(t, []models.Source{{Sheet: "national_wk", Count: 2}, {Sheet: "manual_wk", Count: 1}}, table.Sources)
	require.Len(t, table.Records, 3)

	want := models.Registrant{
		ID:       "manual_wk:2",
		Sheet:    "manual_wk",
		Row:      2,
		Region:   "Greater Accra",
		Division: "Madina",
		Name:     "Esi Owusu",
		Gender:   "Female",
		Contact:  "0551234567",
		Extra:    map[string]string{"T-Shirt": "M"},
	}
	if diff := cmp.Diff(want, table.Records[2]); diff != "" {
		t.Fatalf("manual record mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, models.StatusConfirmed, table.Records[1].RegistrationStatus)
	assert.Equal(t, "national_wk:3", table.Records[1].ID)
}

func TestNormalize_FirstNonEmptySynonymWins(t *testing.T) {
	table, err := Normalize([]RawSheet{{Name: "manual_wk", Rows: [][]string{
		{"Name", "Contact", "Phone"},
		{"Ama", "", "0241234567"},
		{"Kofi", "0201234567", "0559999999"},
	}}})
	require.NoError(t, err)
	assert.Equal(t, "0241234567", table.Records[0].Contact)
	assert.Equal(t, "0201234567", table.Records[1].Contact)
}

func TestNormalize_EmptyInput(t *testing.T) {
	_, err := Normalize(nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNoData))

	_, err = Normalize([]RawSheet{
		{Name: "national_wk", Rows: [][]string{models.Schema}},
		{Name: "manual_wk"},
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNoData))
}

var headerPool = []string{
	"Timestamp", "Region", "Division", "div", "Designation Level", "designation",
	"Name", "Gender", "SEX", "Position", "pos", "Contact", "Phone", "contact info",
	"Registration Status", "regstatus", "Status", "Confirmation Time", "confirmtime",
	"Notes", "t shirt",
}

var valuePool = []string{
	"", " ", "nan", "None", "NA", "confirmed", "Confirmed", "CONFIRMED ", "pending",
	"0241234567", "024 123 4567", "241234567.0", "+233-24-123-4567", "Ama Mensah", "Male",
}

func TestNormalize_Properties(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sheetCount := rapid.IntRange(1, 3).Draw(rt, "sheets")
		var sheets []RawSheet
		for s := 0; s < sheetCount; s++ {
			headers := rapid.SliceOfNDistinct(rapid.SampledFrom(headerPool), 1, 8, func(h string) string { return h }).Draw(rt, "headers")
			rows := [][]string{headers}
			n := rapid.IntRange(0, 6).Draw(rt, "rows")
			for i := 0; i < n; i++ {
				row := rapid.SliceOfN(rapid.SampledFrom(valuePool), len(headers), len(headers)).Draw(rt, "row")
				rows = append(rows, row)
			}
			sheets = append(sheets, RawSheet{Name: "sheet" + strings.Repeat("x", s), Rows: rows})
		}

		table, err := Normalize(sheets)
		if err != nil {
			if !dErrors.HasCode(err, dErrors.CodeNoData) {
				rt.Fatalf("unexpected error: %v", err)
			}
			return
		}

		for _, col := range models.Schema {
			if !contains(table.Columns, col) {
				rt.Fatalf("column %q missing from %v", col, table.Columns)
			}
		}
		total := 0
		for _, src := range table.Sources {
			total += src.Count
		}
		if total != len(table.Records) {
			rt.Fatalf("source counts %d do not cover %d records", total, len(table.Records))
		}
		for _, r := range table.Records {
			if r.RegistrationStatus != "" && r.RegistrationStatus != models.StatusConfirmed {
				rt.Fatalf("status %q escaped normalization", r.RegistrationStatus)
			}
			if r.Contact != DigitsOnly(r.Contact) {
				rt.Fatalf("contact %q is not digit-normalized", r.Contact)
			}
			if got := len(r.Values(table.Columns)); got != len(table.Columns) {
				rt.Fatalf("record has %d values for %d columns", got, len(table.Columns))
			}
		}
	})
}

func TestNormalizeContact_Idempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		raw := rapid.StringMatching(`[0-9 +\-().]{0,16}`).Draw(rt, "contact")
		once := NormalizeContact(raw)
		if twice := NormalizeContact(once); twice != once {
			rt.Fatalf("NormalizeContact(%q) = %q, then %q", raw, once, twice)
		}
	})
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Reg Status", TitleCase("rEG sTATUS"))
	assert.Equal(t, "T-Shirt", TitleCase("t-shirt"))
	assert.Equal(t, "", TitleCase(""))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
