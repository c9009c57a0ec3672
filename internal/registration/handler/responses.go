package handler

import (
	"regdesk/internal/registration/models"
	rostermodels "regdesk/internal/roster/models"
)

// RegistrationResponse echoes the stored row.
type RegistrationResponse struct {
	Timestamp        string `json:"timestamp"`
	Region           string `json:"region"`
	Division         string `json:"division"`
	DesignationLevel string `json:"designation_level"`
	Name             string `json:"name"`
	Gender           string `json:"gender"`
	Position         string `json:"position"`
	Contact          string `json:"contact"`
}

func toRegistrationResponse(r *rostermodels.Registrant) RegistrationResponse {
	return RegistrationResponse{
		Timestamp:        r.Timestamp,
		Region:           r.Region,
		Division:         r.Division,
		DesignationLevel: r.DesignationLevel,
		Name:             r.Name,
		Gender:           r.Gender,
		Position:         r.Position,
		Contact:          r.Contact,
	}
}

// RegionsResponse is the body of GET /api/regions.
type RegionsResponse struct {
	Regions []models.Region `json:"regions"`
}

// formPage is the data rendered by register.html.
type formPage struct {
	Form              models.Submission
	Errors            map[string]string
	Success           string
	Failure           string
	Genders           []string
	DesignationLevels []string
	Regions           []models.Region
}
