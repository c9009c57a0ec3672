package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regdesk/internal/roster/models"
	dErrors "regdesk/pkg/domain-errors"
)

func fixtures() []models.Registrant {
	return []models.Registrant{
		{ID: "national_wk:2", Name: "Ama Mensah", Gender: "Female", Region: "Ashanti", Division: "Kumasi Central", Contact: "0241234567", RegistrationStatus: models.StatusConfirmed},
		{ID: "national_wk:3", Name: "Kofi Agbo", Gender: "Male", Region: "Volta", Division: "Ho", Contact: "0201234567"},
		{ID: "national_wk:4", Name: "Amanda Boateng", Gender: "Female", Region: "Ashanti", Division: "Obuasi", Contact: "0551112222"},
		{ID: "manual_wk:2", Name: "Kwame Ama", Gender: "Male", Region: "Volta", Division: "Ho", Contact: "0277654321", RegistrationStatus: models.StatusConfirmed},
		{ID: "manual_wk:3", Name: "Yaw Darko", Gender: "Male", Region: "", Division: "", Contact: "0209998888", RegistrationStatus: models.StatusConfirmed},
	}
}

func ids(records []models.Registrant) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestSummarize(t *testing.T) {
	s := Summarize(fixtures())
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 3, s.Confirmed)
	assert.Equal(t, 2, s.Unconfirmed)
	assert.InDelta(t, 60.0, s.ConfirmationRate, 0.001)
	assert.Equal(t, 2, s.ConfirmedMale)
	assert.Equal(t, 1, s.ConfirmedFemale)
	assert.InDelta(t, 66.667, s.MaleShare, 0.01)

	empty := Summarize(nil)
	assert.Zero(t, empty.ConfirmationRate)
	assert.Zero(t, empty.MaleShare)
}

func TestRegionOptions(t *testing.T) {
	assert.Equal(t, []string{AllRegions, "Ashanti", "Volta"}, RegionOptions(fixtures()))
}

func TestFilterRegion(t *testing.T) {
	all := fixtures()
	assert.Equal(t, all, FilterRegion(all, AllRegions))
	assert.Equal(t, all, FilterRegion(all, ""))
	assert.Equal(t, []string{"national_wk:3", "manual_wk:2"}, ids(FilterRegion(all, "Volta")))
	assert.Empty(t, FilterRegion(all, "Upper East"))
}

func TestSearch_ByName(t *testing.T) {
	got, err := Search(fixtures(), FieldName, "AMA")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.ElementsMatch(t, []string{"national_wk:2", "national_wk:4", "manual_wk:2"}, ids(got))
}

func TestSearch_ExactMatchRanksFirst(t *testing.T) {
	got, err := Search(fixtures(), "name", "Amanda Boateng")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "national_wk:4", got[0].ID)
}

func TestSearch_ByContact(t *testing.T) {
	got, err := Search(fixtures(), FieldContact, "024-123-4567")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "national_wk:2", got[0].ID)

	partial, err := Search(fixtures(), FieldContact, "0241234")
	require.NoError(t, err)
	assert.Contains(t, ids(partial), "national_wk:2")
}

func TestSearch_NoMatchIsEmptyNotError(t *testing.T) {
	got, err := Search(fixtures(), FieldName, "Zzzzzz")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearch_InvalidField(t *testing.T) {
	_, err := Search(fixtures(), "Region", "Volta")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestSearch_EmptyTermReturnsInput(t *testing.T) {
	got, err := Search(fixtures(), FieldName, "  ")
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestFilter_RegionThenSearch(t *testing.T) {
	got, err := Filter(fixtures(), Query{Region: "Volta", Field: FieldName, Term: "ama"})
	require.NoError(t, err)
	assert.Equal(t, []string{"manual_wk:2"}, ids(got))
}

func TestUnconfirmedAndGroups(t *testing.T) {
	all := fixtures()
	assert.Equal(t, []string{"national_wk:3", "national_wk:4"}, ids(Unconfirmed(all)))

	assert.Equal(t, []string{AllRegions, "Ashanti", "Volta"}, GroupOptions(all, GroupRegion))
	assert.Equal(t, []string{AllDivisions, "Ho", "Obuasi"}, GroupOptions(all, GroupDivision))

	assert.Equal(t, []string{"national_wk:3"}, ids(InGroup(all, GroupDivision, "Ho")))
	assert.Equal(t, []string{"national_wk:3", "national_wk:4"}, ids(InGroup(all, GroupDivision, AllDivisions)))
	assert.Empty(t, InGroup(all, GroupRegion, "Central"))
}

func TestConfirmedRecordLeavesUnconfirmedViews(t *testing.T) {
	all := fixtures()
	require.NoError(t, all[1].Confirm(timeFixture))
	assert.NotContains(t, ids(Unconfirmed(all)), "national_wk:3")
	assert.NotContains(t, ids(InGroup(all, GroupRegion, "Volta")), "national_wk:3")
}

func TestParseGrouping(t *testing.T) {
	g, err := ParseGrouping("")
	require.NoError(t, err)
	assert.Equal(t, GroupRegion, g)

	g, err = ParseGrouping("Division")
	require.NoError(t, err)
	assert.Equal(t, GroupDivision, g)

	_, err = ParseGrouping("gender")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
