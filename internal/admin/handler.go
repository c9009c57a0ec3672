// Package admin serves the confirmation dashboard: the HTML page, its JSON
// API and the admin sign-in flow.
package admin

import (
	"context"
	"crypto/subtle"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"regdesk/internal/confirmation"
	"regdesk/internal/dashboard"
	"regdesk/internal/roster/models"
	dErrors "regdesk/pkg/domain-errors"
	audit "regdesk/pkg/platform/audit"
	"regdesk/pkg/platform/httputil"
	adminmw "regdesk/pkg/platform/middleware/admin"
	"regdesk/pkg/platform/middleware/auth"
	"regdesk/pkg/requestcontext"
)

// Paths of the sign-in flow.
const (
	LoginPath     = "/admin/login"
	DashboardPath = "/admin"
)

// sessionSubject identifies password sign-ins.
const sessionSubject = "admin"

const loadedAtLayout = "Mon 02 Jan, 15:04:05"

// flashTTL bounds how long a redirect notice stays displayable.
const flashTTL = 5 * time.Minute

//go:embed templates/*.html
var templateFS embed.FS

var (
	dashboardTemplate = template.Must(template.ParseFS(templateFS, "templates/dashboard.html"))
	loginTemplate     = template.Must(template.ParseFS(templateFS, "templates/login.html"))
)

// Dashboard defines the read side used by the handler.
type Dashboard interface {
	Overview(ctx context.Context, q dashboard.Query, g dashboard.Grouping, groupValue string) (*dashboard.Overview, error)
	Summary(ctx context.Context) (dashboard.Summary, error)
	Participants(ctx context.Context, q dashboard.Query) ([]models.Registrant, error)
	PendingGroup(ctx context.Context, g dashboard.Grouping, value string) (*dashboard.Group, error)
}

// Confirmer marks participants confirmed.
type Confirmer interface {
	Confirm(ctx context.Context, ids []string) (*confirmation.Result, error)
}

// Sessions issues and validates admin session tokens and the signed notices
// carried by dashboard redirects.
type Sessions interface {
	auth.SessionValidator
	IssueSession(subject string, ttl time.Duration) (string, time.Time, error)
	IssueFlash(level, message string, ttl time.Duration) (string, error)
	ValidateFlash(token string) (level, message string, err error)
}

// AuditLog records sign-in activity and lists recent events.
type AuditLog interface {
	Emit(ctx context.Context, event audit.Event)
	Recent(ctx context.Context, limit int) ([]audit.Event, error)
}

// defaultAuditLimit applies when GET /admin/api/audit has no limit.
const defaultAuditLimit = 50

// Config holds the admin credentials. When PasswordHash is empty the sign-in
// form accepts the admin token as password.
type Config struct {
	Token        string
	PasswordHash string
	SessionTTL   time.Duration
}

// Handler serves the admin routes.
type Handler struct {
	dashboard Dashboard
	confirmer Confirmer
	sessions  Sessions
	cfg       Config
	logger    *slog.Logger
	login     []func(http.Handler) http.Handler
	audit     AuditLog
}

type Option func(*Handler)

// WithLoginMiddleware wraps the sign-in POST, typically with a rate limiter.
func WithLoginMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.login = append(h.login, mw...)
	}
}

// WithAuditLog records sign-ins and serves GET /admin/api/audit.
func WithAuditLog(log AuditLog) Option {
	return func(h *Handler) {
		h.audit = log
	}
}

// New constructs an admin handler.
func New(dash Dashboard, confirmer Confirmer, sessions Sessions, cfg Config, logger *slog.Logger, opts ...Option) *Handler {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 8 * time.Hour
	}
	h := &Handler{
		dashboard: dash,
		confirmer: confirmer,
		sessions:  sessions,
		cfg:       cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the sign-in routes and the protected dashboard routes.
func (h *Handler) Register(r chi.Router) {
	r.Get(LoginPath, h.HandleLoginForm)
	r.With(h.login...).Post(LoginPath, h.HandleLogin)
	r.Post("/admin/logout", h.HandleLogout)

	r.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdmin(h.cfg.Token, h.sessions, LoginPath, h.logger))
		r.Get(DashboardPath, h.HandleDashboard)
		r.Post("/admin/confirm", h.HandleConfirmForm)
		r.Get("/admin/api/summary", h.HandleSummary)
		r.Get("/admin/api/participants", h.HandleParticipants)
		r.Get("/admin/api/unconfirmed", h.HandleUnconfirmed)
		r.Post("/admin/api/confirm", h.HandleConfirm)
		if h.audit != nil {
			r.Get("/admin/api/audit", h.HandleAudit)
		}
	})
}

// HandleDashboard renders the dashboard for the view in the query string.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	values := r.URL.Query()
	view := viewStateFrom(values)
	page := dashboardPage{
		Admin:      requestcontext.AdminSubject(ctx),
		View:       view,
		Fields:     []string{dashboard.FieldName, dashboard.FieldContact},
		Groupings:  []dashboard.Grouping{dashboard.GroupRegion, dashboard.GroupDivision},
	}
	if raw := values.Get("flash"); raw != "" {
		level, message, err := h.sessions.ValidateFlash(raw)
		if err != nil {
			h.logger.WarnContext(ctx, "ignoring unsigned dashboard notice",
				"request_id", requestcontext.RequestID(ctx),
			)
		} else {
			page.Flash = message
			page.FlashLevel = flashLevel(level)
		}
	}

	grouping, err := dashboard.ParseGrouping(view.Grouping)
	if err == nil {
		var ov *dashboard.Overview
		ov, err = h.dashboard.Overview(ctx, view.query(), grouping, view.GroupValue)
		if err == nil {
			page.View.Grouping = string(grouping)
			page.View.GroupValue = ov.Bulk.Value
			page.Summary = ov.Summary
			page.RegionOptions = ov.RegionOptions
			page.Results = toRows(ov.Results)
			page.Pending = toRows(ov.Pending)
			page.GroupOptions = ov.Bulk.Options
			page.Bulk = toRows(ov.Bulk.Records)
			if !ov.LoadedAt.IsZero() {
				page.LoadedAt = ov.LoadedAt.Format(loadedAtLayout)
			}
		}
	}

	status := http.StatusOK
	if err != nil {
		status = dErrors.HTTPStatus(dErrors.CodeOf(err))
		page.Error = userMessage(err, "Data loading failed")
		h.logFailure(ctx, "dashboard load failed", err)
	}
	h.render(w, r, dashboardTemplate, status, page)
}

// HandleConfirmForm handles the confirmation forms of the dashboard and
// redirects back to the same view with a flash message.
func (h *Handler) HandleConfirmForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		h.redirectWithFlash(w, r, viewState{}, flashError, "Confirmation failed: the form could not be read")
		return
	}
	view := viewStateFrom(r.PostForm)

	result, err := h.confirmer.Confirm(ctx, confirmIDsFromForm(r))
	if err != nil {
		h.logFailure(ctx, "confirmation failed", err)
		h.redirectWithFlash(w, r, view, flashError, userMessage(err, "Confirmation failed"))
		return
	}
	if result.Warning != "" {
		h.redirectWithFlash(w, r, view, flashWarning, result.Warning)
		return
	}
	h.redirectWithFlash(w, r, view, flashSuccess, confirmedMessage(result))
}

// HandleSummary handles GET /admin/api/summary.
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary, err := h.dashboard.Summary(ctx)
	if err != nil {
		h.logFailure(ctx, "summary failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleParticipants handles GET /admin/api/participants?region=&field=&q=.
func (h *Handler) HandleParticipants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	records, err := h.dashboard.Participants(ctx, viewStateFrom(r.URL.Query()).query())
	if err != nil {
		h.logFailure(ctx, "participant search failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toParticipantsResponse(records))
}

// HandleUnconfirmed handles GET /admin/api/unconfirmed?group=&value=.
func (h *Handler) HandleUnconfirmed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := viewStateFrom(r.URL.Query())
	grouping, err := dashboard.ParseGrouping(view.Grouping)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	group, err := h.dashboard.PendingGroup(ctx, grouping, view.GroupValue)
	if err != nil {
		h.logFailure(ctx, "unconfirmed listing failed", err)
		httputil.WriteError(w, err)
		return
	}
	if group.Records == nil {
		group.Records = []models.Registrant{}
	}
	httputil.WriteJSON(w, http.StatusOK, group)
}

// HandleConfirm handles POST /admin/api/confirm.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[ConfirmRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	result, err := h.confirmer.Confirm(ctx, req.IDs)
	if err != nil {
		h.logFailure(ctx, "confirmation failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleLoginForm renders the sign-in form.
func (h *Handler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, loginTemplate, http.StatusOK, loginPage{})
}

// HandleLogin checks the password and issues the session cookie.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	if err := r.ParseForm(); err != nil {
		h.render(w, r, loginTemplate, http.StatusBadRequest, loginPage{Error: "The form could not be read"})
		return
	}

	if !h.checkPassword(r.PostFormValue("password")) {
		h.logger.WarnContext(ctx, "admin sign-in rejected",
			"request_id", requestID,
			"client_ip", requestcontext.ClientIP(ctx),
		)
		h.emit(ctx, audit.Event{Action: audit.EventAdminSignInFailed, Reason: "invalid_password"})
		h.render(w, r, loginTemplate, http.StatusUnauthorized, loginPage{Error: "Invalid password"})
		return
	}

	token, expiresAt, err := h.sessions.IssueSession(sessionSubject, h.cfg.SessionTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue admin session",
			"request_id", requestID,
			"error", err,
		)
		h.render(w, r, loginTemplate, http.StatusInternalServerError, loginPage{Error: "Sign-in failed, try again"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     DashboardPath,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	h.logger.InfoContext(ctx, "admin signed in",
		"request_id", requestID,
		"client_ip", requestcontext.ClientIP(ctx),
	)
	h.emit(ctx, audit.Event{Action: audit.EventAdminSignedIn, ActorID: sessionSubject})
	http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
}

// HandleLogout clears the session cookie.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     DashboardPath,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.emit(r.Context(), audit.Event{Action: audit.EventAdminSignedOut})
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// HandleAudit handles GET /admin/api/audit?limit=N, newest events first.
func (h *Handler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	events, err := h.audit.Recent(ctx, limit)
	if err != nil {
		h.logFailure(ctx, "audit listing failed", err)
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, AuditResponse{Events: events})
}

func (h *Handler) emit(ctx context.Context, event audit.Event) {
	if h.audit != nil {
		h.audit.Emit(ctx, event)
	}
}

// checkPassword prefers the bcrypt hash and falls back to the admin token.
// With neither configured nobody can sign in.
func (h *Handler) checkPassword(password string) bool {
	if password == "" {
		return false
	}
	if h.cfg.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(h.cfg.PasswordHash), []byte(password)) == nil
	}
	if h.cfg.Token != "" {
		return subtle.ConstantTimeCompare([]byte(password), []byte(h.cfg.Token)) == 1
	}
	return false
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, view viewState, level, message string) {
	values := view.values()
	notice, err := h.sessions.IssueFlash(level, message, flashTTL)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to sign dashboard notice",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	} else {
		values.Set("flash", notice)
	}
	http.Redirect(w, r, DashboardPath+"?"+values.Encode(), http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, tmpl *template.Template, status int, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to render admin page",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
	}
}

// logFailure logs unexpected errors. Validation failures are the caller's
// mistake and stay out of the error log.
func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	if dErrors.HasCode(err, dErrors.CodeValidation) {
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"admin", requestcontext.AdminSubject(ctx),
		"error", err,
	)
}

func confirmedMessage(result *confirmation.Result) string {
	msg := fmt.Sprintf("Confirmed %d participants successfully!", len(result.Confirmed))
	if len(result.Confirmed) == 1 {
		msg = fmt.Sprintf("%s confirmed successfully!", result.Confirmed[0].Name)
	}
	if n := len(result.Skipped); n > 0 {
		msg += fmt.Sprintf(" %d already confirmed.", n)
	}
	return msg
}

// userMessage shows the domain message; internal errors stay generic.
func userMessage(err error, fallback string) string {
	var de *dErrors.Error
	if errors.As(err, &de) && de.Code != dErrors.CodeInternal && de.Message != "" {
		return de.Message
	}
	return fallback
}

func flashLevel(raw string) string {
	switch raw {
	case flashSuccess, flashWarning, flashError:
		return raw
	default:
		return flashSuccess
	}
}
