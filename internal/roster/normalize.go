package roster

import (
	"regexp"
	"strings"
	"unicode"

	"regdesk/internal/roster/models"
	"regdesk/internal/spreadsheet"
	dErrors "regdesk/pkg/domain-errors"
)

// RawSheet is the unnormalized content of one source worksheet.
type RawSheet struct {
	Name string
	Rows [][]string
}

// columnSynonyms maps title-cased header variants onto canonical columns.
var columnSynonyms = map[string]string{
	"Regstatus":          models.ColRegistrationStatus,
	"Reg Status":         models.ColRegistrationStatus,
	"Status":             models.ColRegistrationStatus,
	"Confirmationstatus": models.ColRegistrationStatus,
	"Confirmstatus":      models.ColRegistrationStatus,
	"Confirmtime":        models.ColConfirmationTime,
	"Confirm Time":       models.ColConfirmationTime,
	"Confirmdate":        models.ColConfirmationTime,
	"Contactinfo":        models.ColContact,
	"Contact Info":       models.ColContact,
	"Phone":              models.ColContact,
	"Designation":        models.ColDesignationLevel,
	"Designationlevel":   models.ColDesignationLevel,
	"Pos":                models.ColPosition,
	"Post":               models.ColPosition,
	"Div":                models.ColDivision,
	"Dept":               models.ColDivision,
	"Sex":                models.ColGender,
	"Time Stamp":         models.ColTimestamp,
	"Submitted At":       models.ColTimestamp,
	"Full Name":          models.ColName,
}

// blankStatuses are spreadsheet renderings of a missing value.
var blankStatuses = map[string]struct{}{
	"":     {},
	"Nan":  {},
	"Na":   {},
	"None": {},
}

var floatRendering = regexp.MustCompile(`^(\d+)\.0+$`)

// Normalize reconciles raw worksheets into one table. Sources keep their order;
// a worksheet with no data rows contributes a zero-count source so it is still
// rewritten on confirmation.
func Normalize(sheets []RawSheet) (*models.Table, error) {
	table := &models.Table{Columns: append([]string(nil), models.Schema...)}
	seenExtra := make(map[string]struct{})

	for _, sheet := range sheets {
		headers, records := spreadsheet.Records(sheet.Rows)
		canonical := make([]string, len(headers))
		for i, h := range headers {
			canonical[i] = CanonicalColumn(h)
			if !models.IsSchemaColumn(canonical[i]) {
				if _, ok := seenExtra[canonical[i]]; !ok {
					seenExtra[canonical[i]] = struct{}{}
					table.Columns = append(table.Columns, canonical[i])
				}
			}
		}

		for _, rec := range records {
			r := models.Registrant{
				ID:    models.RecordID(sheet.Name, rec.Row),
				Sheet: sheet.Name,
				Row:   rec.Row,
			}
			for i, h := range headers {
				col := canonical[i]
				value := strings.TrimSpace(rec.Values[h])
				// Two raw headers can collapse onto one column; first non-empty wins.
				if value == "" || r.Get(col) != "" {
					continue
				}
				r.Set(col, value)
			}
			r.Contact = NormalizeContact(r.Contact)
			r.RegistrationStatus = NormalizeStatus(r.RegistrationStatus)
			table.Records = append(table.Records, r)
		}
		table.Sources = append(table.Sources, models.Source{Sheet: sheet.Name, Count: len(records)})
	}

	if len(table.Records) == 0 {
		return nil, dErrors.New(dErrors.CodeNoData, "No data found in the spreadsheet")
	}
	return table, nil
}

// CanonicalColumn trims, collapses inner whitespace and title-cases a header,
// then resolves synonyms.
func CanonicalColumn(header string) string {
	name := TitleCase(strings.Join(strings.Fields(header), " "))
	if canonical, ok := columnSynonyms[name]; ok {
		return canonical
	}
	return name
}

// NormalizeStatus trims and title-cases a status. Anything that is not
// "Confirmed" is an unconfirmed registrant.
func NormalizeStatus(status string) string {
	status = TitleCase(strings.TrimSpace(status))
	if _, blank := blankStatuses[status]; blank {
		return ""
	}
	if status != models.StatusConfirmed {
		return ""
	}
	return status
}

// NormalizeContact keeps digits only. Numeric cells rendered as floats
// ("241234567.0") lose their fractional part first.
func NormalizeContact(contact string) string {
	contact = strings.TrimSpace(contact)
	if m := floatRendering.FindStringSubmatch(contact); m != nil {
		contact = m[1]
	}
	return DigitsOnly(contact)
}

// DigitsOnly strips every non-digit rune.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// TitleCase upper-cases the first letter of every word and lower-cases the
// rest, where a word starts after any non-letter.
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
