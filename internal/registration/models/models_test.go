package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	require.NotEmpty(t, c.Names())
	assert.Equal(t, "Greater Accra", c.Names()[0], "file order is preserved")
	assert.True(t, c.HasDivision("Ashanti", "Kumasi Central"))
	assert.False(t, c.HasDivision("Volta", "Kumasi Central"))
	assert.Nil(t, c.Divisions("Atlantis"))
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
regions:
  - name: North
    divisions: [Alpha, Beta]
  - name: South
    divisions: [Gamma]
`), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"North", "South"}, c.Names())
	assert.Equal(t, []Region{{Name: "North", Divisions: []string{"Alpha", "Beta"}}, {Name: "South", Divisions: []string{"Gamma"}}}, c.Regions())

	def, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalog().Names(), def.Names())

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseCatalog_Rejects(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":        "regions: []",
		"duplicate":    "regions: [{name: A, divisions: [x]}, {name: A, divisions: [y]}]",
		"no divisions": "regions: [{name: A}]",
		"no name":      "regions: [{divisions: [x]}]",
		"malformed":    "regions: {",
	} {
		_, err := ParseCatalog([]byte(raw))
		assert.Error(t, err, name)
	}
}

type SubmissionSuite struct {
	suite.Suite
	catalog *Catalog
}

func TestSubmissionSuite(t *testing.T) {
	suite.Run(t, new(SubmissionSuite))
}

func (s *SubmissionSuite) SetupTest() {
	s.catalog = DefaultCatalog()
}

func (s *SubmissionSuite) valid() *Submission {
	return &Submission{
		Name:             "  ama mensah ",
		Gender:           "female",
		DesignationLevel: "regional",
		Position:         "youth coordinator",
		Region:           "Ashanti",
		Division:         "Kumasi Central",
		Contact:          "024-123 4567",
	}
}

func (s *SubmissionSuite) TestValidSubmission() {
	sub := s.valid()
	sub.Normalize()
	s.Nil(sub.Validate(s.catalog))
	s.Equal("Female", sub.Gender)
	s.Equal("Regional", sub.DesignationLevel)
	s.Equal("0241234567", sub.Contact)

	at := time.Date(2025, 1, 2, 15, 4, 5, 123456000, time.Local)
	r := sub.Registrant(at)
	s.Equal("2025-01-02 15:04:05.123456", r.Timestamp)
	s.Equal("Ama Mensah", r.Name)
	s.Equal("Youth Coordinator", r.Position)
	s.Empty(r.RegistrationStatus)
	s.Empty(r.ConfirmationTime)
}

func (s *SubmissionSuite) TestCollectsEveryFailure() {
	sub := &Submission{Gender: "Select", DesignationLevel: "Chief", Region: "Atlantis", Contact: "12345"}
	sub.Normalize()
	errs := sub.Validate(s.catalog)

	s.Require().NotNil(errs)
	for _, field := range []string{FieldName, FieldGender, FieldDesignation, FieldPosition, FieldRegion, FieldDivision, FieldContact} {
		s.Contains(errs, field)
	}
	s.Contains(errs.Error(), "contact: Enter a valid 10-digit Telephone Number")
}

func (s *SubmissionSuite) TestDivisionMustBelongToRegion() {
	sub := s.valid()
	sub.Division = "Ho"
	sub.Normalize()
	errs := sub.Validate(s.catalog)
	s.Equal(FieldErrors{FieldDivision: "Select a Division"}, errs)
}

func (s *SubmissionSuite) TestContactRules() {
	for contact, ok := range map[string]bool{
		"0241234567":    true,
		"024 123 4567":  true,
		"024-123-4567":  true,
		"+233241234567": false,
		"024123456":     false,
		"02412345678":   false,
		"024.123.4567":  false,
		"024123456a":    false,
	} {
		sub := s.valid()
		sub.Contact = contact
		sub.Normalize()
		errs := sub.Validate(s.catalog)
		if ok {
			s.Nil(errs, contact)
		} else {
			s.Contains(errs, FieldContact, contact)
		}
	}
}
