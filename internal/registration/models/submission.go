package models

import (
	"sort"
	"strings"
	"time"

	"regdesk/internal/roster"
	rostermodels "regdesk/internal/roster/models"
)

// Accepted genders and designation levels, in form order.
var (
	Genders           = []string{"Male", "Female"}
	DesignationLevels = []string{"National", "Regional", "Divisional", "Group", "District", "Local"}
)

// Form field keys, shared by the HTML form and the JSON API.
const (
	FieldName        = "name"
	FieldGender      = "gender"
	FieldDesignation = "designation_level"
	FieldPosition    = "position"
	FieldRegion      = "region"
	FieldDivision    = "division"
	FieldContact     = "contact"
)

// FieldErrors maps a form field to its message.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + f[k]
	}
	return "invalid registration: " + strings.Join(parts, "; ")
}

// FieldErrors exposes the per-field messages to the HTTP layer.
func (f FieldErrors) FieldErrors() map[string]string {
	return f
}

// Submission is one participant as entered on the form.
type Submission struct {
	Name             string `json:"name"`
	Gender           string `json:"gender"`
	DesignationLevel string `json:"designation_level"`
	Position         string `json:"position"`
	Region           string `json:"region"`
	Division         string `json:"division"`
	Contact          string `json:"contact"`
}

// Normalize trims every field, canonicalizes choice fields and strips spaces
// and dashes from the contact.
func (s *Submission) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Gender = canonicalChoice(s.Gender, Genders)
	s.DesignationLevel = canonicalChoice(s.DesignationLevel, DesignationLevels)
	s.Position = strings.TrimSpace(s.Position)
	s.Region = strings.TrimSpace(s.Region)
	s.Division = strings.TrimSpace(s.Division)
	s.Contact = strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s.Contact))
}

// Validate checks a normalized submission against the catalog and collects
// every failure.
func (s *Submission) Validate(catalog *Catalog) FieldErrors {
	errs := FieldErrors{}
	if s.Name == "" {
		errs[FieldName] = "Full Name is required"
	}
	if !contains(Genders, s.Gender) {
		errs[FieldGender] = "Select a Gender"
	}
	if !contains(DesignationLevels, s.DesignationLevel) {
		errs[FieldDesignation] = "Select Designation Level"
	}
	if s.Position == "" {
		errs[FieldPosition] = "Position is required"
	}
	switch {
	case !catalog.HasRegion(s.Region):
		errs[FieldRegion] = "Select a Region"
		errs[FieldDivision] = "Select a Division"
	case !catalog.HasDivision(s.Region, s.Division):
		errs[FieldDivision] = "Select a Division"
	}
	if len(s.Contact) != 10 || roster.DigitsOnly(s.Contact) != s.Contact {
		errs[FieldContact] = "Enter a valid 10-digit Telephone Number"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Registrant builds the record appended to the registration worksheet.
func (s *Submission) Registrant(at time.Time) rostermodels.Registrant {
	return rostermodels.Registrant{
		Timestamp:        at.Format(rostermodels.SubmissionTimeLayout),
		Region:           s.Region,
		Division:         s.Division,
		DesignationLevel: s.DesignationLevel,
		Name:             roster.TitleCase(s.Name),
		Gender:           s.Gender,
		Position:         roster.TitleCase(s.Position),
		Contact:          s.Contact,
	}
}

func canonicalChoice(v string, choices []string) string {
	v = strings.TrimSpace(v)
	for _, c := range choices {
		if strings.EqualFold(v, c) {
			return c
		}
	}
	return v
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
