package handler

import (
	"net/http"
	"unicode/utf8"

	"regdesk/internal/registration/models"
	dErrors "regdesk/pkg/domain-errors"
)

// maxFieldLength bounds every free-text field of a submission.
const maxFieldLength = 200

// RegistrationRequest is the JSON body of POST /api/registrations.
type RegistrationRequest struct {
	models.Submission
}

// Validate enforces size limits only. Domain rules are applied by the service
// so the HTML form and the API report the same field errors.
func (r *RegistrationRequest) Validate() error {
	for _, v := range []string{r.Name, r.Gender, r.DesignationLevel, r.Position, r.Region, r.Division, r.Contact} {
		if utf8.RuneCountInString(v) > maxFieldLength {
			return dErrors.New(dErrors.CodeValidation, "field exceeds maximum length")
		}
	}
	return nil
}

func submissionFromForm(r *http.Request) models.Submission {
	return models.Submission{
		Name:             r.PostFormValue(models.FieldName),
		Gender:           r.PostFormValue(models.FieldGender),
		DesignationLevel: r.PostFormValue(models.FieldDesignation),
		Position:         r.PostFormValue(models.FieldPosition),
		Region:           r.PostFormValue(models.FieldRegion),
		Division:         r.PostFormValue(models.FieldDivision),
		Contact:          r.PostFormValue(models.FieldContact),
	}
}
