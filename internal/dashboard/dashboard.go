// Package dashboard derives the administrative views of the roster: summary
// metrics, region and text filtering with fuzzy matching, and the lists of
// participants still awaiting confirmation.
package dashboard

import (
	"fmt"
	"strings"

	"regdesk/internal/fuzzy"
	"regdesk/internal/roster"
	"regdesk/internal/roster/models"
	dErrors "regdesk/pkg/domain-errors"
	pstrings "regdesk/pkg/platform/strings"
)

const (
	AllRegions   = "All Regions"
	AllDivisions = "All Divisions"
)

// Search fields.
const (
	FieldName    = "Name"
	FieldContact = "Contact"
)

// Minimum scores for a search hit.
const (
	NameCutoff    = 80
	ContactCutoff = 70
)

// Grouping selects the column bulk confirmation groups by.
type Grouping string

const (
	GroupRegion   Grouping = "region"
	GroupDivision Grouping = "division"
)

// Summary holds the headline metrics. Gender counts cover confirmed
// participants only.
type Summary struct {
	Total            int     `json:"total"`
	Confirmed        int     `json:"confirmed"`
	Unconfirmed      int     `json:"unconfirmed"`
	ConfirmationRate float64 `json:"confirmation_rate"`
	ConfirmedMale    int     `json:"confirmed_male"`
	ConfirmedFemale  int     `json:"confirmed_female"`
	MaleShare        float64 `json:"male_share"`
}

// Summarize computes the headline metrics over records.
func Summarize(records []models.Registrant) Summary {
	s := Summary{Total: len(records)}
	for i := range records {
		if !records[i].IsConfirmed() {
			continue
		}
		s.Confirmed++
		switch records[i].Gender {
		case "Male":
			s.ConfirmedMale++
		case "Female":
			s.ConfirmedFemale++
		}
	}
	s.Unconfirmed = s.Total - s.Confirmed
	if s.Total > 0 {
		s.ConfirmationRate = 100 * float64(s.Confirmed) / float64(s.Total)
	}
	if s.Confirmed > 0 {
		s.MaleShare = 100 * float64(s.ConfirmedMale) / float64(s.Confirmed)
	}
	return s
}

// RegionOptions lists "All Regions" followed by the sorted distinct regions.
func RegionOptions(records []models.Registrant) []string {
	return pstrings.Options(AllRegions, column(records, models.ColRegion))
}

// FilterRegion keeps the records of one region. AllRegions or an empty region
// returns every record.
func FilterRegion(records []models.Registrant, region string) []models.Registrant {
	region = strings.TrimSpace(region)
	if region == "" || region == AllRegions {
		return records
	}
	var out []models.Registrant
	for _, r := range records {
		if r.Region == region {
			out = append(out, r)
		}
	}
	return out
}

// Search returns the records whose field fuzzily matches term, best match
// first. An empty term returns records unchanged.
func Search(records []models.Registrant, field, term string) ([]models.Registrant, error) {
	term = strings.TrimSpace(term)
	field = roster.TitleCase(strings.TrimSpace(field))
	if field == "" {
		field = FieldName
	}

	var (
		query      string
		candidates = make([]string, len(records))
		scorer     fuzzy.Scorer
		cutoff     float64
	)
	switch field {
	case FieldName:
		query = strings.ToLower(term)
		for i := range records {
			candidates[i] = strings.ToLower(records[i].Name)
		}
		scorer, cutoff = fuzzy.PartialRatio, NameCutoff
	case FieldContact:
		query = roster.DigitsOnly(term)
		for i := range records {
			candidates[i] = roster.DigitsOnly(records[i].Contact)
		}
		scorer, cutoff = fuzzy.TokenSetRatio, ContactCutoff
	default:
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("cannot search by %q: use Name or Contact", field))
	}
	if term == "" {
		return records, nil
	}

	matches := fuzzy.Extract(query, candidates, scorer, cutoff)
	out := make([]models.Registrant, len(matches))
	for i, m := range matches {
		out[i] = records[m.Index]
	}
	return out, nil
}

// Query is a region filter combined with an optional text search.
type Query struct {
	Region string
	Field  string
	Term   string
}

// Filter applies the region filter and then the search.
func Filter(records []models.Registrant, q Query) ([]models.Registrant, error) {
	return Search(FilterRegion(records, q.Region), q.Field, q.Term)
}

// Unconfirmed keeps records that have not been confirmed, in order.
func Unconfirmed(records []models.Registrant) []models.Registrant {
	var out []models.Registrant
	for _, r := range records {
		if !r.IsConfirmed() {
			out = append(out, r)
		}
	}
	return out
}

// ParseGrouping accepts "region" or "division" in any case; empty means region.
func ParseGrouping(raw string) (Grouping, error) {
	switch Grouping(strings.ToLower(strings.TrimSpace(raw))) {
	case "", GroupRegion:
		return GroupRegion, nil
	case GroupDivision:
		return GroupDivision, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("cannot group by %q: use region or division", raw))
	}
}

// GroupOptions lists the "All" option followed by the sorted distinct values of
// the grouping column among unconfirmed records.
func GroupOptions(records []models.Registrant, g Grouping) []string {
	pending := Unconfirmed(records)
	if g == GroupDivision {
		return pstrings.Options(AllDivisions, column(pending, models.ColDivision))
	}
	return pstrings.Options(AllRegions, column(pending, models.ColRegion))
}

// InGroup returns the unconfirmed records of one group. Any value starting
// with "All" selects every unconfirmed record.
func InGroup(records []models.Registrant, g Grouping, value string) []models.Registrant {
	pending := Unconfirmed(records)
	value = strings.TrimSpace(value)
	if value == "" || strings.HasPrefix(value, "All") {
		return pending
	}
	col := models.ColRegion
	if g == GroupDivision {
		col = models.ColDivision
	}
	var out []models.Registrant
	for _, r := range pending {
		if r.Get(col) == value {
			out = append(out, r)
		}
	}
	return out
}

func column(records []models.Registrant, col string) []string {
	out := make([]string, len(records))
	for i := range records {
		out[i] = records[i].Get(col)
	}
	return out
}
