package ratelimit

import (
	"context"
	"fmt"
	"net/url"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any, headers map[string]string) error
	PostForm(path string, form url.Values, headers map[string]string) error
	SetRateLimits(registrations, logins int) error
	GetLastResponseStatus() int
	GetLastResponseHeader(name string) string
}

// RegisterSteps registers rate-limiting steps. Clients are told apart by
// X-Forwarded-For.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ratelimitSteps{tc: tc}
	ctx.Step(`^registrations are limited to (\d+) per minute$`, steps.limitRegistrations)
	ctx.Step(`^sign-in attempts are limited to (\d+) per minute$`, steps.limitLogins)
	ctx.Step(`^client "([^"]*)" submits (\d+) registrations$`, steps.submitRegistrations)
	ctx.Step(`^client "([^"]*)" fails to sign in (\d+) times$`, steps.failSignIn)
	ctx.Step(`^the first (\d+) (?:requests|attempts) should pass the limiter$`, steps.firstShouldPass)
	ctx.Step(`^the last (?:request|attempt) should be rejected with a retry delay$`, steps.lastShouldBeRejected)
}

type ratelimitSteps struct {
	tc       TestContext
	statuses []int
}

func (s *ratelimitSteps) limitRegistrations(_ context.Context, n int) error {
	return s.tc.SetRateLimits(n, 0)
}

func (s *ratelimitSteps) limitLogins(_ context.Context, n int) error {
	return s.tc.SetRateLimits(0, n)
}

func (s *ratelimitSteps) submitRegistrations(_ context.Context, ip string, n int) error {
	s.statuses = s.statuses[:0]
	for i := range n {
		body := map[string]string{
			"name": "Kojo Mensah", "gender": "Male", "designation_level": "Group",
			"position": "Usher", "region": "Volta", "division": "Keta",
			"contact": fmt.Sprintf("05%08d", i),
		}
		if err := s.tc.POST("/api/registrations", body, map[string]string{"X-Forwarded-For": ip}); err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *ratelimitSteps) failSignIn(_ context.Context, ip string, n int) error {
	s.statuses = s.statuses[:0]
	for range n {
		form := url.Values{"password": {"wrong"}}
		if err := s.tc.PostForm("/admin/login", form, map[string]string{"X-Forwarded-For": ip}); err != nil {
			return err
		}
		s.statuses = append(s.statuses, s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *ratelimitSteps) firstShouldPass(_ context.Context, n int) error {
	if len(s.statuses) < n {
		return fmt.Errorf("only %d requests were made", len(s.statuses))
	}
	for i, status := range s.statuses[:n] {
		if status == 429 {
			return fmt.Errorf("request %d was rate limited", i+1)
		}
	}
	return nil
}

func (s *ratelimitSteps) lastShouldBeRejected(context.Context) error {
	if status := s.tc.GetLastResponseStatus(); status != 429 {
		return fmt.Errorf("expected 429, got %d", status)
	}
	if s.tc.GetLastResponseHeader("Retry-After") == "" {
		return fmt.Errorf("missing Retry-After header")
	}
	return nil
}
