package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string, headers map[string]string) error
	POST(path string, body any, headers map[string]string) error
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	AdminHeaders() map[string]string
}

// RegisterSteps registers dashboard and confirmation steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &adminSteps{tc: tc}
	ctx.Step(`^I request the summary as admin$`, steps.requestSummary)
	ctx.Step(`^I confirm participant "([^"]*)" as admin$`, steps.confirm)
	ctx.Step(`^I search participants by "([^"]*)" for "([^"]*)" as admin$`, steps.search)
	ctx.Step(`^the search should return (\d+) participants?$`, steps.searchShouldReturn)
	ctx.Step(`^participant "([^"]*)" should be confirmed$`, steps.shouldBeConfirmed)
	ctx.Step(`^the audit log should record "([^"]*)" for "([^"]*)"$`, steps.auditShouldRecord)
}

type adminSteps struct {
	tc TestContext
}

type participant struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	RegistrationStatus string `json:"registration_status"`
}

func (s *adminSteps) requestSummary(context.Context) error {
	return s.tc.GET("/admin/api/summary", s.tc.AdminHeaders())
}

func (s *adminSteps) confirm(_ context.Context, id string) error {
	return s.tc.POST("/admin/api/confirm", map[string][]string{"ids": {id}}, s.tc.AdminHeaders())
}

func (s *adminSteps) search(_ context.Context, field, term string) error {
	q := url.Values{"field": {field}, "q": {term}}
	return s.tc.GET("/admin/api/participants?"+q.Encode(), s.tc.AdminHeaders())
}

func (s *adminSteps) participants() ([]participant, error) {
	var body struct {
		Participants []participant `json:"participants"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return nil, fmt.Errorf("decode participants: %w", err)
	}
	return body.Participants, nil
}

func (s *adminSteps) searchShouldReturn(_ context.Context, n int) error {
	found, err := s.participants()
	if err != nil {
		return err
	}
	if len(found) != n {
		return fmt.Errorf("expected %d participants, got %d", n, len(found))
	}
	return nil
}

func (s *adminSteps) shouldBeConfirmed(_ context.Context, id string) error {
	if err := s.tc.GET("/admin/api/participants", s.tc.AdminHeaders()); err != nil {
		return err
	}
	found, err := s.participants()
	if err != nil {
		return err
	}
	for _, p := range found {
		if p.ID == id {
			if p.RegistrationStatus != "Confirmed" {
				return fmt.Errorf("participant %s has status %q", id, p.RegistrationStatus)
			}
			return nil
		}
	}
	return fmt.Errorf("participant %s not found", id)
}

func (s *adminSteps) auditShouldRecord(_ context.Context, action, subject string) error {
	if err := s.tc.GET("/admin/api/audit", s.tc.AdminHeaders()); err != nil {
		return err
	}
	var body struct {
		Events []struct {
			Action  string `json:"action"`
			Subject string `json:"subject"`
		} `json:"events"`
	}
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return fmt.Errorf("decode audit: %w", err)
	}
	for _, e := range body.Events {
		if e.Action == action && e.Subject == subject {
			return nil
		}
	}
	return fmt.Errorf("no %s event for %s in %s", action, subject, s.tc.GetLastResponseBody())
}
