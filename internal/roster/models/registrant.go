package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	dErrors "regdesk/pkg/domain-errors"
)

// StatusConfirmed is the only non-empty registration status.
const StatusConfirmed = "Confirmed"

// Layouts used when writing timestamps into the spreadsheet.
const (
	SubmissionTimeLayout   = "2006-01-02 15:04:05.000000"
	ConfirmationTimeLayout = "Mon 02 Jan, 15:04"
)

// Registrant is one row of the roster.
//
// Invariants:
//   - RegistrationStatus is "" or StatusConfirmed after normalization
//   - Contact holds digits only
//   - A registrant is confirmed at most once; ConfirmationTime is set with it
//
// ID, Sheet and Row locate the record in its source worksheet and are never
// written back as columns.
type Registrant struct {
	ID                 string            `json:"id"`
	Sheet              string            `json:"sheet"`
	Row                int               `json:"row"`
	Timestamp          string            `json:"timestamp"`
	Region             string            `json:"region"`
	Division           string            `json:"division"`
	DesignationLevel   string            `json:"designation_level"`
	Name               string            `json:"name"`
	Gender             string            `json:"gender"`
	Position           string            `json:"position"`
	Contact            string            `json:"contact"`
	RegistrationStatus string            `json:"registration_status"`
	ConfirmationTime   string            `json:"confirmation_time"`
	Extra              map[string]string `json:"extra,omitempty"`
}

// RecordID builds the stable identifier of a worksheet row.
func RecordID(sheet string, row int) string {
	return sheet + ":" + strconv.Itoa(row)
}

// ParseRecordID splits an identifier built by RecordID.
func ParseRecordID(id string) (sheet string, row int, err error) {
	idx := strings.LastIndex(id, ":")
	if idx <= 0 || idx == len(id)-1 {
		return "", 0, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid participant id %q", id))
	}
	row, err = strconv.Atoi(id[idx+1:])
	if err != nil || row < 2 {
		return "", 0, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid participant id %q", id))
	}
	return id[:idx], row, nil
}

// IsConfirmed reports whether the registrant has been confirmed.
func (r *Registrant) IsConfirmed() bool {
	return r.RegistrationStatus == StatusConfirmed
}

// CanConfirm checks that the registrant is still awaiting confirmation.
func (r *Registrant) CanConfirm() error {
	if r.IsConfirmed() {
		return dErrors.New(dErrors.CodeInvariantViolation, "participant is already confirmed")
	}
	return nil
}

// ApplyConfirmation marks the registrant confirmed at the given time.
// Call CanConfirm first.
func (r *Registrant) ApplyConfirmation(at time.Time) {
	r.RegistrationStatus = StatusConfirmed
	r.ConfirmationTime = at.Format(ConfirmationTimeLayout)
}

// Confirm validates and applies confirmation in one call.
func (r *Registrant) Confirm(at time.Time) error {
	if err := r.CanConfirm(); err != nil {
		return err
	}
	r.ApplyConfirmation(at)
	return nil
}

// DisplayStatus renders an empty status as "Unconfirmed".
func (r *Registrant) DisplayStatus() string {
	if r.IsConfirmed() {
		return StatusConfirmed
	}
	return "Unconfirmed"
}

// Get returns the value of a canonical or extra column.
func (r *Registrant) Get(column string) string {
	switch column {
	case ColTimestamp:
		return r.Timestamp
	case ColRegion:
		return r.Region
	case ColDivision:
		return r.Division
	case ColDesignationLevel:
		return r.DesignationLevel
	case ColName:
		return r.Name
	case ColGender:
		return r.Gender
	case ColPosition:
		return r.Position
	case ColContact:
		return r.Contact
	case ColRegistrationStatus:
		return r.RegistrationStatus
	case ColConfirmationTime:
		return r.ConfirmationTime
	default:
		return r.Extra[column]
	}
}

// Set assigns the value of a canonical or extra column.
func (r *Registrant) Set(column, value string) {
	switch column {
	case ColTimestamp:
		r.Timestamp = value
	case ColRegion:
		r.Region = value
	case ColDivision:
		r.Division = value
	case ColDesignationLevel:
		r.DesignationLevel = value
	case ColName:
		r.Name = value
	case ColGender:
		r.Gender = value
	case ColPosition:
		r.Position = value
	case ColContact:
		r.Contact = value
	case ColRegistrationStatus:
		r.RegistrationStatus = value
	case ColConfirmationTime:
		r.ConfirmationTime = value
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[column] = value
	}
}

// Values returns the row for the given column order.
func (r *Registrant) Values(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = r.Get(c)
	}
	return out
}
