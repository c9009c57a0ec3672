// Package e2e drives the full HTTP surface in-process with godog scenarios
// under features/. Every scenario starts a fresh server over an in-memory
// workbook.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"regdesk/e2e/steps/admin"
	"regdesk/e2e/steps/common"
	"regdesk/e2e/steps/ratelimit"
	"regdesk/e2e/steps/registration"
	"regdesk/internal/app"
	"regdesk/internal/platform/config"
)

// AdminToken authenticates admin steps through X-Admin-Token.
const AdminToken = "e2e-admin-token"

// TestContext holds the server of one scenario and the last response.
type TestContext struct {
	cfg    config.Server
	app    *app.App
	server *httptest.Server
	client *http.Client

	lastStatus int
	lastHeader http.Header
	lastBody   []byte
}

// RegisterSteps registers all step definitions from modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Before(func(c context.Context, _ *godog.Scenario) (context.Context, error) {
		return c, tc.Start(defaultConfig())
	})
	ctx.After(func(c context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
		tc.Stop()
		return c, nil
	})

	common.RegisterSteps(ctx, tc)
	registration.RegisterSteps(ctx, tc)
	admin.RegisterSteps(ctx, tc)
	ratelimit.RegisterSteps(ctx, tc)
}

func defaultConfig() config.Server {
	return config.Server{
		Sheets: config.Sheets{
			Backend:               config.BackendMemory,
			Name:                  "mini_congress",
			RegistrationWorksheet: "national_wk",
			SourceWorksheets:      []string{"national_wk", "manual_wk"},
			RetryAttempts:         1,
			RetryBackoff:          time.Millisecond,
		},
		Roster: config.Roster{CacheTTL: time.Minute},
		Admin: config.Admin{
			Token:             AdminToken,
			SessionSigningKey: "e2e-signing-key",
			SessionTTL:        time.Hour,
		},
		RateLimit: config.RateLimit{RegistrationsPerMinute: 1000, LoginAttemptsPerMinute: 1000},
	}
}

// Start builds a fresh app for cfg and serves it.
func (tc *TestContext) Start(cfg config.Server) error {
	tc.Stop()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("start app: %w", err)
	}
	tc.cfg = cfg
	tc.app = a
	tc.server = httptest.NewServer(a.Router())
	tc.client = &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return nil
}

// Stop shuts the current server down.
func (tc *TestContext) Stop() {
	if tc.server != nil {
		tc.server.Close()
		tc.server = nil
	}
	if tc.app != nil {
		_ = tc.app.Close(context.Background())
		tc.app = nil
	}
}

// SetRateLimits restarts the server with new per-minute limits.
func (tc *TestContext) SetRateLimits(registrations, logins int) error {
	cfg := tc.cfg
	if registrations > 0 {
		cfg.RateLimit.RegistrationsPerMinute = registrations
	}
	if logins > 0 {
		cfg.RateLimit.LoginAttemptsPerMinute = logins
	}
	return tc.Start(cfg)
}

func (tc *TestContext) AdminHeaders() map[string]string {
	return map[string]string{"X-Admin-Token": AdminToken}
}

func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) POST(path string, body any, headers map[string]string) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		h[k] = v
	}
	return tc.do(http.MethodPost, path, bytes.NewReader(raw), h)
}

func (tc *TestContext) PostForm(path string, form url.Values, headers map[string]string) error {
	h := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	for k, v := range headers {
		h[k] = v
	}
	return tc.do(http.MethodPost, path, strings.NewReader(form.Encode()), h)
}

func (tc *TestContext) do(method, path string, body io.Reader, headers map[string]string) error {
	if tc.server == nil {
		return fmt.Errorf("server not started")
	}
	req, err := http.NewRequest(method, tc.server.URL+path, body)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) GetLastResponseStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.lastBody
}

func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.lastHeader == nil {
		return ""
	}
	return tc.lastHeader.Get(name)
}

// GetResponseField reads a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var body map[string]any
	if err := json.Unmarshal(tc.lastBody, &body); err != nil {
		return nil, fmt.Errorf("response is not a JSON object: %w", err)
	}
	v, ok := body[field]
	if !ok {
		return nil, fmt.Errorf("field %q not in response: %s", field, tc.lastBody)
	}
	return v, nil
}
