package models

// Canonical spreadsheet columns, in schema order.
const (
	ColTimestamp          = "Timestamp"
	ColRegion             = "Region"
	ColDivision           = "Division"
	ColDesignationLevel   = "Designation Level"
	ColName               = "Name"
	ColGender             = "Gender"
	ColPosition           = "Position"
	ColContact            = "Contact"
	ColRegistrationStatus = "Registration Status"
	ColConfirmationTime   = "Confirmation Time"
)

// Schema is the column order of every source worksheet.
var Schema = []string{
	ColTimestamp,
	ColRegion,
	ColDivision,
	ColDesignationLevel,
	ColName,
	ColGender,
	ColPosition,
	ColContact,
	ColRegistrationStatus,
	ColConfirmationTime,
}

// IsSchemaColumn reports whether name is one of the canonical columns.
func IsSchemaColumn(name string) bool {
	for _, c := range Schema {
		if c == name {
			return true
		}
	}
	return false
}
