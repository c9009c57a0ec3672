package admin

import (
	"regdesk/internal/dashboard"
	"regdesk/internal/roster/models"
	audit "regdesk/pkg/platform/audit"
)

// AuditResponse is the body of GET /admin/api/audit.
type AuditResponse struct {
	Events []audit.Event `json:"events"`
}

// ParticipantsResponse is the body of GET /admin/api/participants.
type ParticipantsResponse struct {
	Total        int                 `json:"total"`
	Participants []models.Registrant `json:"participants"`
}

func toParticipantsResponse(records []models.Registrant) ParticipantsResponse {
	if records == nil {
		records = []models.Registrant{}
	}
	return ParticipantsResponse{Total: len(records), Participants: records}
}

// participantRow is one line of a dashboard table.
type participantRow struct {
	ID       string
	Name     string
	Gender   string
	Region   string
	Division string
	Position string
	Status   string
}

func toRows(records []models.Registrant) []participantRow {
	rows := make([]participantRow, len(records))
	for i := range records {
		r := &records[i]
		rows[i] = participantRow{
			ID:       r.ID,
			Name:     r.Name,
			Gender:   r.Gender,
			Region:   r.Region,
			Division: r.Division,
			Position: r.Position,
			Status:   r.DisplayStatus(),
		}
	}
	return rows
}

// Flash levels.
const (
	flashSuccess = "success"
	flashWarning = "warning"
	flashError   = "error"
)

// dashboardPage is the data rendered by dashboard.html.
type dashboardPage struct {
	Admin         string
	Error         string
	Flash         string
	FlashLevel    string
	View          viewState
	Summary       dashboard.Summary
	RegionOptions []string
	Fields        []string
	Results       []participantRow
	Pending       []participantRow
	Groupings     []dashboard.Grouping
	GroupOptions  []string
	Bulk          []participantRow
	LoadedAt      string
}

// loginPage is the data rendered by login.html.
type loginPage struct {
	Error string
}
