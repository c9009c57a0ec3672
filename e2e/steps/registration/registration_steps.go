package registration

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
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers public registration steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &registrationSteps{tc: tc}
	ctx.Step(`^I register "([^"]*)" from "([^"]*)" division "([^"]*)" with contact "([^"]*)"$`, steps.registerViaAPI)
	ctx.Step(`^I submit the registration form for "([^"]*)" with contact "([^"]*)"$`, steps.submitForm)
	ctx.Step(`^(\d+) participants have registered$`, steps.registerMany)
}

type registrationSteps struct {
	tc TestContext
}

func submission(name, region, division, contact string) map[string]string {
	return map[string]string{
		"name":              name,
		"gender":            "Female",
		"designation_level": "Local",
		"position":          "Member",
		"region":            region,
		"division":          division,
		"contact":           contact,
	}
}

func (s *registrationSteps) registerViaAPI(_ context.Context, name, region, division, contact string) error {
	return s.tc.POST("/api/registrations", submission(name, region, division, contact), nil)
}

func (s *registrationSteps) submitForm(_ context.Context, name, contact string) error {
	form := url.Values{}
	for k, v := range submission(name, "Central", "Winneba", contact) {
		form.Set(k, v)
	}
	return s.tc.PostForm("/register", form, nil)
}

// names are far enough apart that a fuzzy name search finds exactly one.
var names = []string{"Kwesi Appiah", "Dede Ayew", "Yaa Asantewaa", "Tetteh Quarshie", "Efua Sutherland"}

func (s *registrationSteps) registerMany(_ context.Context, n int) error {
	for i := range n {
		name := names[i%len(names)]
		if i >= len(names) {
			name = fmt.Sprintf("%s %d", name, i)
		}
		sub := submission(name, "Volta", "Keta", fmt.Sprintf("02%08d", i))
		if err := s.tc.POST("/api/registrations", sub, nil); err != nil {
			return err
		}
		if status := s.tc.GetLastResponseStatus(); status != 201 {
			return fmt.Errorf("registration %d: status %d: %s", i, status, s.tc.GetLastResponseBody())
		}
	}
	return nil
}
